package handler

import (
	"net/http"
	"strings"

	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// missing names the empty fields among want, in order.
func (c credentials) missing(want ...string) []string {
	values := map[string]string{"email": c.Email, "password": c.Password, "name": c.Name}
	var out []string
	for _, f := range want {
		if strings.TrimSpace(values[f]) == "" {
			out = append(out, f)
		}
	}
	return out
}

func readCredentials(w http.ResponseWriter, r *http.Request, want ...string) (credentials, bool) {
	var c credentials
	if err := readJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return c, false
	}
	if m := c.missing(want...); len(m) > 0 {
		writeError(w, http.StatusBadRequest, strings.Join(m, ", ")+" required")
		return c, false
	}
	return c, true
}

// Register opens a free account. Membership tiers are granted by admins
// through the membership route, never at sign-up.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	c, ok := readCredentials(w, r, "email", "password", "name")
	if !ok {
		return
	}
	result, err := h.svc.Register(r.Context(), c.Email, c.Password, c.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	c, ok := readCredentials(w, r, "email", "password")
	if !ok {
		return
	}
	result, err := h.svc.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Me returns the caller's profile with the tier in force today.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Me(r.Context(), auth.GetUser(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Refresh reissues the token so the tier claim follows membership changes
// made since login.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Refresh(r.Context(), auth.GetUser(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
