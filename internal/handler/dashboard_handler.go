package handler

import (
	"net/http"

	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/service"
)

type DashboardHandler struct {
	svc   *service.DashboardService
	audit *service.AuditService
}

func NewDashboardHandler(svc *service.DashboardService, audit *service.AuditService) *DashboardHandler {
	return &DashboardHandler{svc: svc, audit: audit}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Summary(r.Context(), auth.GetToken(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DashboardHandler) Audit(w http.ResponseWriter, r *http.Request) {
	skip, limit := paging(r)
	logs, total, err := h.audit.List(r.Context(), r.URL.Query().Get("entity"), skip, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"total": total,
		"skip":  skip,
		"limit": limit,
	})
}
