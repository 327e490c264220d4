package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/checkout"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/service"
)

type CheckoutHandler struct {
	svc *service.CheckoutService
}

func NewCheckoutHandler(svc *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type startRequest struct {
	Billing models.BillingDetails `json:"billing"`
}

func (h *CheckoutHandler) StartProduct(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	params, err := h.svc.StartProduct(r.Context(), auth.GetUser(r.Context()), chi.URLParam(r, "productId"), req.Billing)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, params)
}

func (h *CheckoutHandler) StartApplication(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	params, err := h.svc.StartApplication(r.Context(), auth.GetUser(r.Context()), chi.URLParam(r, "submissionId"), req.Billing)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, params)
}

func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Get(r.Context(), auth.GetUser(r.Context()), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

// SDK reports the outcome of the gateway SDK's Init in the browser.
func (h *CheckoutHandler) SDK(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ready   bool   `json:"ready"`
		Message string `json:"message"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.svc.ReportSDK(r.Context(), auth.GetUser(r.Context()), chi.URLParam(r, "sessionId"), req.Ready, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Card checkout.CardGate `json:"card"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.svc.Pay(r.Context(), auth.GetUser(r.Context()), chi.URLParam(r, "sessionId"), req.Card)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

// Result reports the message the SDK's Pay call resolved with.
func (h *CheckoutHandler) Result(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.svc.ReportResult(r.Context(), auth.GetUser(r.Context()), chi.URLParam(r, "sessionId"), req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (h *CheckoutHandler) Retry(w http.ResponseWriter, r *http.Request) {
	params, err := h.svc.Retry(r.Context(), auth.GetUser(r.Context()), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

// Return handles the query the gateway appends to the redirect URL.
func (h *CheckoutHandler) Return(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.HandleReturn(r.Context(), chi.URLParam(r, "sessionId"), r.URL.Query())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// sessionView adds the derived canPay flag the client uses to enable the
// pay button.
func sessionView(s *checkout.Session) map[string]any {
	return map[string]any{
		"session": s,
		"canPay":  s.CanPay(),
	}
}
