package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/checkout"
	"github.com/parisxmas/sangha/internal/membership"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/repository"
	"github.com/parisxmas/sangha/internal/tilopay"
)

// PaymentGateway issues SDK tokens for the browser checkout and checks the
// signature on its redirects.
type PaymentGateway interface {
	Token(ctx context.Context) (string, error)
	Key() string
	VerifyRedirect(q url.Values, o tilopay.Order) (tilopay.Redirect, error)
}

type CheckoutService struct {
	orders      *repository.OrderRepo
	users       *repository.UserRepo
	products    *ProductService
	subs        *SubmissionService
	forms       *FormService
	sessions    checkout.Store
	gateway     PaymentGateway
	redirectURL string
	audit       *AuditService
	log         *zap.Logger
}

func NewCheckoutService(
	orders *repository.OrderRepo,
	users *repository.UserRepo,
	products *ProductService,
	subs *SubmissionService,
	forms *FormService,
	sessions checkout.Store,
	gateway PaymentGateway,
	redirectURL string,
	audit *AuditService,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		orders:      orders,
		users:       users,
		products:    products,
		subs:        subs,
		forms:       forms,
		sessions:    sessions,
		gateway:     gateway,
		redirectURL: redirectURL,
		audit:       audit,
		log:         log,
	}
}

// SDKParams is everything the browser needs to call the gateway SDK's Init.
// Token is empty when the SDK is already initialized.
type SDKParams struct {
	Session     *checkout.Session     `json:"session"`
	Token       string                `json:"token,omitempty"`
	TilopayKey  string                `json:"tilopay_key"`
	Amount      string                `json:"amount"`
	Currency    string                `json:"currency"`
	OrderNumber string                `json:"order_number"`
	Billing     models.BillingDetails `json:"billing"`
	Redirect    string                `json:"redirect"`
}

// ReturnResult is the outcome of the gateway redirect.
type ReturnResult struct {
	Paid        bool              `json:"paid"`
	OrderNumber string            `json:"order_number"`
	Message     string            `json:"message,omitempty"`
	Session     *checkout.Session `json:"session"`
}

func newOrderNumber() string {
	return fmt.Sprintf("SG-%s-%s", time.Now().UTC().Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// formatAmount renders minor units as the decimal string the SDK expects.
func formatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

func checkBilling(b models.BillingDetails) error {
	var m checkout.Machine
	return m.Begin(b)
}

func (s *CheckoutService) tier(ctx context.Context, claims *auth.Claims) membership.Tier {
	if u, err := s.users.FindByID(ctx, claims.UserID); err == nil && u != nil {
		t, _ := memberTier(u, time.Now())
		return t
	}
	if t, err := membership.ParseTier(claims.Tier); err == nil {
		return t
	}
	return membership.Free
}

// StartProduct creates an order for a product at the member's price and
// opens a checkout session.
func (s *CheckoutService) StartProduct(ctx context.Context, claims *auth.Claims, productID string, billing models.BillingDetails) (*SDKParams, error) {
	if err := checkBilling(billing); err != nil {
		return nil, err
	}
	p, err := s.products.View(ctx, productID, s.tier(ctx, claims))
	if err != nil {
		return nil, err
	}
	order := &models.Order{
		Kind:      models.OrderKindProduct,
		ProductID: p.ID,
		UserID:    claims.UserID,
		Amount:    p.MemberPrice,
		Currency:  p.Currency,
		Billing:   billing,
	}
	return s.open(ctx, claims, order)
}

// StartApplication charges the application fee of a submitted form.
func (s *CheckoutService) StartApplication(ctx context.Context, claims *auth.Claims, submissionID string, billing models.BillingDetails) (*SDKParams, error) {
	if err := checkBilling(billing); err != nil {
		return nil, err
	}
	sub, err := s.subs.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != "" && sub.UserID != claims.UserID && !claims.IsAdmin() {
		return nil, fmt.Errorf("submission %s: %w", submissionID, ErrForbidden)
	}
	switch sub.Status {
	case models.SubmissionPaymentPending:
	case models.SubmissionPaid:
		return nil, fmt.Errorf("submission %s already paid: %w", submissionID, ErrConflict)
	default:
		return nil, invalidf("submission %s does not require payment", submissionID)
	}
	form, err := s.forms.Get(ctx, sub.FormID)
	if err != nil {
		return nil, err
	}
	if !form.RequiresPayment || form.PaymentAmount <= 0 {
		return nil, invalidf("form %s does not require payment", form.ID)
	}
	order := &models.Order{
		Kind:         models.OrderKindApplication,
		SubmissionID: sub.ID,
		UserID:       claims.UserID,
		Amount:       form.PaymentAmount,
		Currency:     form.PaymentCurrency,
		Billing:      billing,
	}
	return s.open(ctx, claims, order)
}

func (s *CheckoutService) open(ctx context.Context, claims *auth.Claims, order *models.Order) (*SDKParams, error) {
	now := time.Now().UTC()
	order.OrderNumber = newOrderNumber()
	order.Status = models.OrderPending
	order.CreatedAt = now
	order.UpdatedAt = now
	id, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	order.ID = id

	sessID := uuid.NewString()
	sess := &checkout.Session{
		ID:          sessID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      claims.UserID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		RedirectURL: s.redirectFor(sessID),
	}
	if err := sess.Begin(order.Billing); err != nil {
		return nil, err
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, claims.UserID, "checkout.start", "order", order.ID, order.OrderNumber)
	return s.initSDK(ctx, sess, order)
}

func (s *CheckoutService) redirectFor(sessionID string) string {
	u, err := url.Parse(s.redirectURL)
	if err != nil {
		return s.redirectURL
	}
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()
	return u.String()
}

// initSDK fetches a gateway token for a session in sdk-loading. A token
// failure moves the session to error so the client can retry.
func (s *CheckoutService) initSDK(ctx context.Context, sess *checkout.Session, order *models.Order) (*SDKParams, error) {
	token, err := s.gateway.Token(ctx)
	if err != nil {
		s.log.Warn("gateway token failed", zap.String("order", order.OrderNumber), zap.Error(err))
		if _, uerr := s.sessions.Update(ctx, sess.ID, func(cur *checkout.Session) error {
			return cur.Fail(err.Error())
		}); uerr != nil {
			s.log.Warn("checkout session update failed", zap.String("session", sess.ID), zap.Error(uerr))
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return s.params(sess, order, token), nil
}

func (s *CheckoutService) params(sess *checkout.Session, order *models.Order, token string) *SDKParams {
	return &SDKParams{
		Session:     sess,
		Token:       token,
		TilopayKey:  s.gateway.Key(),
		Amount:      formatAmount(order.Amount),
		Currency:    order.Currency,
		OrderNumber: order.OrderNumber,
		Billing:     order.Billing,
		Redirect:    sess.RedirectURL,
	}
}

func (s *CheckoutService) owned(ctx context.Context, claims *auth.Claims, id string) (*checkout.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, checkout.ErrSessionNotFound) {
		return nil, notFoundf("checkout session %s", id)
	}
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.UserID && !claims.IsAdmin() {
		return nil, fmt.Errorf("checkout session %s: %w", id, ErrForbidden)
	}
	return sess, nil
}

func (s *CheckoutService) update(ctx context.Context, claims *auth.Claims, id string, fn func(*checkout.Session) error) (*checkout.Session, error) {
	if _, err := s.owned(ctx, claims, id); err != nil {
		return nil, err
	}
	sess, err := s.sessions.Update(ctx, id, fn)
	if errors.Is(err, checkout.ErrSessionNotFound) {
		return nil, notFoundf("checkout session %s", id)
	}
	return sess, err
}

func (s *CheckoutService) Get(ctx context.Context, claims *auth.Claims, id string) (*checkout.Session, error) {
	return s.owned(ctx, claims, id)
}

// ReportSDK records the outcome of the browser's SDK Init.
func (s *CheckoutService) ReportSDK(ctx context.Context, claims *auth.Claims, id string, ready bool, message string) (*checkout.Session, error) {
	return s.update(ctx, claims, id, func(sess *checkout.Session) error {
		if ready {
			return sess.SDKReady()
		}
		return sess.SDKFailed(message)
	})
}

// Pay is the "Complete Payment" action. It only succeeds in sdk-ready with
// every card field filled.
func (s *CheckoutService) Pay(ctx context.Context, claims *auth.Claims, id string, gate checkout.CardGate) (*checkout.Session, error) {
	return s.update(ctx, claims, id, func(sess *checkout.Session) error {
		return sess.Pay(gate)
	})
}

// ReportResult applies the SDK's pay response. A failure marks the order
// failed; success waits for the gateway redirect to confirm payment.
func (s *CheckoutService) ReportResult(ctx context.Context, claims *auth.Claims, id, message string) (*checkout.Session, error) {
	var ok bool
	sess, err := s.update(ctx, claims, id, func(sess *checkout.Session) error {
		var err error
		ok, err = sess.PayResult(message)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := s.orders.SetStatus(ctx, sess.OrderID, models.OrderFailed, message, ""); err != nil {
			return nil, err
		}
		s.log.Info("payment declined", zap.String("order", sess.OrderNumber), zap.String("message", message))
	}
	return sess, nil
}

// Retry leaves the error state. When the SDK never initialized, the session
// restarts from idle with a fresh token.
func (s *CheckoutService) Retry(ctx context.Context, claims *auth.Claims, id string) (*SDKParams, error) {
	sess, err := s.update(ctx, claims, id, func(sess *checkout.Session) error {
		return sess.Retry()
	})
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, sess.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, notFoundf("order %s", sess.OrderID)
	}
	if order.Status == models.OrderFailed {
		if err := s.orders.SetStatus(ctx, order.ID, models.OrderPending, "", ""); err != nil {
			return nil, err
		}
		order.Status = models.OrderPending
	}

	if sess.State == checkout.StateSDKReady {
		return s.params(sess, order, ""), nil
	}
	sess, err = s.sessions.Update(ctx, id, func(cur *checkout.Session) error {
		return cur.Begin(order.Billing)
	})
	if err != nil {
		return nil, err
	}
	return s.initSDK(ctx, sess, order)
}

// HandleReturn processes the gateway redirect. The query must carry a valid
// OrderHash for this session's order, and the session must have submitted
// the payment. It is idempotent: a repeated redirect for a paid order
// returns the paid result again.
func (s *CheckoutService) HandleReturn(ctx context.Context, id string, query url.Values) (*ReturnResult, error) {
	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, checkout.ErrSessionNotFound) {
		return nil, notFoundf("checkout session %s", id)
	}
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, sess.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, notFoundf("order %s", sess.OrderID)
	}

	redirect, err := s.gateway.VerifyRedirect(query, tilopay.Order{
		Number:   order.OrderNumber,
		Amount:   formatAmount(order.Amount),
		Currency: order.Currency,
		Email:    order.Billing.Email,
	})
	switch {
	case errors.Is(err, tilopay.ErrBadSignature):
		s.log.Warn("gateway redirect rejected", zap.String("session", id), zap.String("order", order.OrderNumber), zap.Error(err))
		return nil, fmt.Errorf("%v: %w", err, ErrForbidden)
	case err != nil:
		return nil, fmt.Errorf("%v: %w", err, ErrInvalid)
	}
	if order.Status == models.OrderPaid {
		return &ReturnResult{Paid: true, OrderNumber: order.OrderNumber, Session: sess}, nil
	}

	msg := redirect.Description
	if !redirect.Paid() && msg == "" {
		msg = "Payment declined"
	}
	sess, err = s.sessions.Update(ctx, id, func(cur *checkout.Session) error {
		return cur.Confirm(redirect.Paid(), msg)
	})
	if err != nil {
		return nil, err
	}

	if !redirect.Paid() {
		if err := s.orders.SetStatus(ctx, order.ID, models.OrderFailed, msg, ""); err != nil {
			return nil, err
		}
		s.log.Info("payment declined by gateway", zap.String("order", order.OrderNumber), zap.String("code", redirect.Code))
		return &ReturnResult{Paid: false, OrderNumber: order.OrderNumber, Message: msg, Session: sess}, nil
	}

	if err := s.orders.SetStatus(ctx, order.ID, models.OrderPaid, redirect.Description, redirect.Auth); err != nil {
		return nil, err
	}
	if order.SubmissionID != "" {
		if err := s.subs.MarkPaid(ctx, order.SubmissionID); err != nil {
			s.log.Warn("mark submission paid failed", zap.String("submission", order.SubmissionID), zap.Error(err))
		}
	}
	s.audit.Record(ctx, order.UserID, "order.paid", "order", order.ID, order.OrderNumber)
	return &ReturnResult{Paid: true, OrderNumber: order.OrderNumber, Session: sess}, nil
}
