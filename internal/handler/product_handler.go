package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/membership"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/service"
)

type ProductHandler struct {
	svc   *service.ProductService
	users *service.AuthService
}

func NewProductHandler(svc *service.ProductService, users *service.AuthService) *ProductHandler {
	return &ProductHandler{svc: svc, users: users}
}

// tier reads the caller's tier in force from the account, falling back to
// the token when the lookup fails.
func (h *ProductHandler) tier(r *http.Request) membership.Tier {
	claims := auth.GetUser(r.Context())
	if claims == nil {
		return membership.Free
	}
	if me, err := h.users.Me(r.Context(), claims.UserID); err == nil {
		return me.Tier
	}
	t, err := membership.ParseTier(claims.Tier)
	if err != nil {
		return membership.Free
	}
	return t
}

func (h *ProductHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Catalog(r.Context(), h.tier(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) View(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.View(r.Context(), chi.URLParam(r, "id"), h.tier(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := readJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.svc.Create(r.Context(), auth.GetUser(r.Context()).UserID, &p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := readJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := h.svc.Update(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "id"), &p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), auth.GetUser(r.Context()).UserID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
