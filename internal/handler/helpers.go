package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/parisxmas/sangha/internal/backend"
	"github.com/parisxmas/sangha/internal/checkout"
	"github.com/parisxmas/sangha/internal/forms"
	"github.com/parisxmas/sangha/internal/service"
	"github.com/parisxmas/sangha/internal/strapi"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service and domain errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		verr  *service.ValidationError
		terr  *forms.TemplateError
		cerr  *checkout.CardFieldsError
		trerr *checkout.TransitionError
		serr  *strapi.Error
		berr  *backend.Error
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"page":   verr.Page,
			"errors": verr.Errors,
		})
	case errors.As(err, &terr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "invalid form template",
			"problems": terr.Problems,
		})
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "card details incomplete",
			"missing": cerr.Missing,
		})
	case errors.Is(err, checkout.ErrBillingIncomplete):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &trerr):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUpstream), errors.As(err, &serr), errors.As(err, &berr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// paging reads skip/limit query parameters. limit defaults to 20 and is
// capped at 100.
func paging(r *http.Request) (int, int) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return skip, limit
}
