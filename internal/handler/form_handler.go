package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/service"
)

type FormHandler struct {
	svc *service.FormService
}

func NewFormHandler(svc *service.FormService) *FormHandler {
	return &FormHandler{svc: svc}
}

func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	forms, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forms)
}

func (h *FormHandler) Create(w http.ResponseWriter, r *http.Request) {
	var tmpl models.FormTemplate
	if err := readJSON(r, &tmpl); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claims := auth.GetUser(r.Context())
	form, err := h.svc.Create(r.Context(), claims.UserID, &tmpl)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, form)
}

func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.Get(r.Context(), chi.URLParam(r, "formId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (h *FormHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "formId")
	var tmpl models.FormTemplate
	if err := readJSON(r, &tmpl); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claims := auth.GetUser(r.Context())
	form, err := h.svc.Update(r.Context(), claims.UserID, id, &tmpl)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "formId")
	claims := auth.GetUser(r.Context())
	if err := h.svc.Delete(r.Context(), claims.UserID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// Public serves a published form with its pages.
func (h *FormHandler) Public(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.Public(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// ValidatePage is the wizard's "Next" check.
func (h *FormHandler) ValidatePage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page    int            `json:"page"`
		Answers map[string]any `json:"answers"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.ValidatePage(r.Context(), chi.URLParam(r, "slug"), req.Page, req.Answers); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "page": max(req.Page, 1)})
}
