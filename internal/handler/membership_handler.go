package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/service"
)

type MembershipHandler struct {
	svc *service.MembershipService
}

func NewMembershipHandler(svc *service.MembershipService) *MembershipHandler {
	return &MembershipHandler{svc: svc}
}

func (h *MembershipHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.MembershipRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.svc.Update(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
