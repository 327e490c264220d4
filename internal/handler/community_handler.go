package handler

import (
	"context"
	"net/http"

	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/backend"
	"github.com/parisxmas/sangha/internal/service"
)

// CommunityHandler proxies email and book-group listings, forwarding the
// caller's token.
type CommunityHandler struct {
	backend service.CommunityBackend
}

func NewCommunityHandler(b service.CommunityBackend) *CommunityHandler {
	return &CommunityHandler{backend: b}
}

func (h *CommunityHandler) serve(w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]backend.Record, error)) {
	recs, err := list(r.Context(), auth.GetToken(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *CommunityHandler) Campaigns(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.backend.ListCampaigns)
}

func (h *CommunityHandler) Automations(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.backend.ListAutomations)
}

func (h *CommunityHandler) BookGroups(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.backend.ListBookGroups)
}
