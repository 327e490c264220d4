package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/service"
)

type SubmissionHandler struct {
	svc *service.SubmissionService
}

func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{svc: svc}
}

func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formId")
	skip, limit := paging(r)

	subs, total, err := h.svc.List(r.Context(), formID, skip, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"total":       total,
		"skip":        skip,
		"limit":       limit,
	})
}

// Create accepts a full answer map keyed by question id. File answers are
// storage keys from POST /files. Signed-in members are linked to the
// submission.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers map[string]any `json:"answers"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var userID, email string
	if claims := auth.GetUser(r.Context()); claims != nil {
		userID, email = claims.UserID, claims.Email
	}
	res, err := h.svc.Submit(r.Context(), chi.URLParam(r, "slug"), userID, email, req.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Get(r.Context(), chi.URLParam(r, "subId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	subID := chi.URLParam(r, "subId")
	if err := h.svc.Delete(r.Context(), subID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": subID})
}
