package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parisxmas/sangha/internal/strapi"
)

// StrapiReader is the read side of the Strapi client exposed to admins.
type StrapiReader interface {
	ListUsers(ctx context.Context) ([]strapi.User, error)
	ListInstructors(ctx context.Context) (*strapi.Collection, error)
	ListCourses(ctx context.Context) (*strapi.Collection, error)
	ContentTypeSchema(ctx context.Context, uid string) (json.RawMessage, error)
}

type StrapiHandler struct {
	cms StrapiReader
}

func NewStrapiHandler(cms StrapiReader) *StrapiHandler {
	return &StrapiHandler{cms: cms}
}

func (h *StrapiHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.cms.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "total": len(users)})
}

func (h *StrapiHandler) Instructors(w http.ResponseWriter, r *http.Request) {
	col, err := h.cms.ListInstructors(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, col)
}

func (h *StrapiHandler) Courses(w http.ResponseWriter, r *http.Request) {
	col, err := h.cms.ListCourses(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, col)
}

func (h *StrapiHandler) Schema(w http.ResponseWriter, r *http.Request) {
	raw, err := h.cms.ContentTypeSchema(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}
