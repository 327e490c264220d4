package service_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/sangha/internal/auth"
	"github.com/parisxmas/sangha/internal/backend"
	"github.com/parisxmas/sangha/internal/checkout"
	"github.com/parisxmas/sangha/internal/db"
	"github.com/parisxmas/sangha/internal/membership"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/repository"
	"github.com/parisxmas/sangha/internal/service"
	"github.com/parisxmas/sangha/internal/storage"
	"github.com/parisxmas/sangha/internal/strapi"
	"github.com/parisxmas/sangha/internal/tilopay"
)

type fakeGateway struct {
	err   error
	calls int
}

func (g *fakeGateway) Token(context.Context) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return "tok", nil
}

func (g *fakeGateway) Key() string { return "merchant-key" }

var merchant = tilopay.New("", "merchant", "secret", "merchant-key")

func (g *fakeGateway) VerifyRedirect(q url.Values, o tilopay.Order) (tilopay.Redirect, error) {
	return merchant.VerifyRedirect(q, o)
}

// gatewayReturn is the redirect query the gateway sends for a checkout,
// signed with the merchant credentials.
func gatewayReturn(p *service.SDKParams, code, description, authCode string) url.Values {
	payload := url.Values{}
	fields := [][2]string{
		{"api_Key", "merchant-key"}, {"api_user", "merchant"}, {"orderId", p.OrderNumber},
		{"external_orden_id", "tx-" + code}, {"amount", p.Amount}, {"currency", p.Currency},
		{"responseCode", code}, {"auth", authCode}, {"email", p.Billing.Email},
	}
	var encoded string
	for i, f := range fields {
		if i > 0 {
			encoded += "&"
		}
		encoded += url.QueryEscape(f[0]) + "=" + url.QueryEscape(f[1])
	}
	mac := hmac.New(sha256.New, []byte(p.OrderNumber+"|merchant-key|secret"))
	mac.Write([]byte(encoded))

	payload.Set("code", code)
	payload.Set("description", description)
	payload.Set("auth", authCode)
	payload.Set("order", p.OrderNumber)
	payload.Set("tilopay-transaction", "tx-"+code)
	payload.Set("OrderHash", hex.EncodeToString(mac.Sum(nil)))
	return payload
}

type fakeCMS struct {
	users   map[string]*strapi.User
	updates []strapi.MembershipUpdate
}

func (c *fakeCMS) FindUserByEmail(_ context.Context, email string) (*strapi.User, error) {
	return c.users[email], nil
}

func (c *fakeCMS) UpdateUser(_ context.Context, id int, upd strapi.MembershipUpdate) (*strapi.User, error) {
	c.updates = append(c.updates, upd)
	return &strapi.User{ID: id, Membership: upd.Membership}, nil
}

type fakeBackend struct{}

func (fakeBackend) ListCampaigns(context.Context, string) ([]backend.Record, error) {
	return []backend.Record{{"id": 1}, {"id": 2}}, nil
}

func (fakeBackend) ListAutomations(context.Context, string) ([]backend.Record, error) {
	return nil, errors.New("connection refused")
}

func (fakeBackend) ListBookGroups(context.Context, string) ([]backend.Record, error) {
	return []backend.Record{{"id": "bg"}}, nil
}

type env struct {
	users    *repository.UserRepo
	orders   *repository.OrderRepo
	auth     *service.AuthService
	audit    *service.AuditService
	forms    *service.FormService
	subs     *service.SubmissionService
	products *service.ProductService
	checkout *service.CheckoutService
	members  *service.MembershipService
	dash     *service.DashboardService
	files    *service.FileService
	gateway  *fakeGateway
	cms      *fakeCMS
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, db.DriverSQLite, ":memory:", 1)
	require.NoError(t, err)
	require.NoError(t, d.Migrate(ctx))
	t.Cleanup(func() { d.Close() })

	log := zap.NewNop()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	e := &env{
		users:   repository.NewUserRepo(d),
		orders:  repository.NewOrderRepo(d),
		gateway: &fakeGateway{},
		cms:     &fakeCMS{users: map[string]*strapi.User{}},
	}
	formRepo := repository.NewFormRepo(d)
	subRepo := repository.NewSubmissionRepo(d)
	e.auth = service.NewAuthService(e.users, "secret")
	e.audit = service.NewAuditService(repository.NewAuditRepo(d), log)
	e.forms = service.NewFormService(formRepo, e.audit)
	e.files = service.NewFileService(store, e.forms)
	e.subs = service.NewSubmissionService(subRepo, e.forms, e.files)
	e.products = service.NewProductService(repository.NewProductRepo(d), e.audit)
	e.checkout = service.NewCheckoutService(e.orders, e.users, e.products, e.subs, e.forms,
		checkout.NewMemoryStore(time.Hour), e.gateway, "http://shop.test/complete", e.audit, log)
	e.members = service.NewMembershipService(e.users, e.cms, e.audit, log)
	e.dash = service.NewDashboardService(e.users, formRepo, subRepo, e.orders, fakeBackend{}, log)
	return e
}

func (e *env) register(t *testing.T, email string) *auth.Claims {
	t.Helper()
	res, err := e.auth.Register(context.Background(), email, "password1", "Member")
	require.NoError(t, err)
	claims, err := auth.ValidateToken("secret", res.Token)
	require.NoError(t, err)
	return claims
}

func retreatForm(payment bool) *models.FormTemplate {
	return &models.FormTemplate{
		Title:           "Retreat Application",
		IsActive:        true,
		SuccessMessage:  "Thanks!",
		SuccessRedirect: "https://example.org/next",
		RequiresPayment: payment,
		PaymentAmount:   5000,
		PaymentCurrency: "USD",
		Questions: []models.FormQuestion{
			{ID: "name", QuestionText: "Name", QuestionType: models.QuestionText, IsRequired: true, Page: 1},
			{ID: "email", QuestionText: "Email", QuestionType: models.QuestionEmail, IsRequired: true, Page: 1},
			{ID: "intro", QuestionText: "<b>About you</b>", QuestionType: models.QuestionParagraph, Page: 2},
			{ID: "why", QuestionText: "Why?", QuestionType: models.QuestionTextarea, IsRequired: true, Page: 2},
			{ID: "cv", QuestionText: "CV", QuestionType: models.QuestionFile, AllowedFileTypes: []string{"pdf"}, Page: 2},
		},
	}
}

func TestAuth_RegisterLogin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	res, err := e.auth.Register(ctx, " Ana@Example.org ", "password1", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.org", res.User.Email)
	assert.Equal(t, "free", res.User.MembershipTier)

	_, err = e.auth.Register(ctx, "ana@example.org", "password1", "Ana")
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = e.auth.Login(ctx, "ana@example.org", "wrong")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	res, err = e.auth.Login(ctx, "ANA@example.org", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	created, err := e.auth.SeedAdmin(ctx, "admin@sangha.local", "admin123")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = e.auth.SeedAdmin(ctx, "admin@sangha.local", "admin123")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAuth_LapsedMembershipSignsFreeTier(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	claims := e.register(t, "ana@example.org")

	user, err := e.users.FindByID(ctx, claims.UserID)
	require.NoError(t, err)
	user.MembershipTier = "GYANI"
	user.MembershipEnd = time.Now().UTC().Format("2006-01-02")
	require.NoError(t, e.users.UpdateMembership(ctx, user))

	me, err := e.auth.Me(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, membership.Gyani, me.Tier, "end date is inclusive")
	assert.False(t, me.Expired)

	user.MembershipEnd = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	require.NoError(t, e.users.UpdateMembership(ctx, user))

	me, err = e.auth.Me(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, membership.Free, me.Tier)
	assert.True(t, me.Expired)
	assert.Equal(t, "GYANI", me.MembershipTier, "stored tier is kept for renewal")

	res, err := e.auth.Refresh(ctx, claims.UserID)
	require.NoError(t, err)
	refreshed, err := auth.ValidateToken("secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, "free", refreshed.Tier)

	_, err = e.auth.Refresh(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestForms_PublicAndValidatePage(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	form, err := e.forms.Create(ctx, "admin", retreatForm(false))
	require.NoError(t, err)
	assert.Equal(t, "retreat-application", form.Slug)

	again, err := e.forms.Create(ctx, "admin", retreatForm(false))
	require.NoError(t, err)
	assert.NotEqual(t, form.Slug, again.Slug)

	pub, err := e.forms.Public(ctx, form.Slug)
	require.NoError(t, err)
	require.Len(t, pub.Pages, 2)
	assert.Equal(t, 1, pub.Pages[0].Number)

	err = e.forms.ValidatePage(ctx, form.Slug, 1, map[string]any{"name": "Ana"})
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, verr.Page)
	assert.Contains(t, verr.Errors, "email")
	assert.NotContains(t, verr.Errors, "name")

	assert.NoError(t, e.forms.ValidatePage(ctx, form.Slug, 1, map[string]any{"name": "Ana", "email": "a@b.c"}))
	assert.ErrorIs(t, e.forms.ValidatePage(ctx, form.Slug, 9, nil), service.ErrInvalid)

	form.IsActive = false
	_, err = e.forms.Update(ctx, "admin", form.ID, form)
	require.NoError(t, err)
	_, err = e.forms.Public(ctx, form.Slug)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestSubmissions_Submit(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	form, err := e.forms.Create(ctx, "admin", retreatForm(false))
	require.NoError(t, err)

	_, err = e.subs.Submit(ctx, form.Slug, "", "", map[string]any{"name": "Ana", "email": "a@b.c"})
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Page, "first failing page")

	_, err = e.subs.Submit(ctx, form.Slug, "", "", map[string]any{"name": "Ana", "email": "a@b.c", "why": 42})
	assert.ErrorIs(t, err, service.ErrInvalid)

	_, err = e.subs.Submit(ctx, form.Slug, "", "", map[string]any{"name": "Ana", "email": "a@b.c", "why": "calm", "cv": "k_cv.exe"})
	assert.ErrorIs(t, err, service.ErrInvalid)

	cv, err := e.files.Upload(ctx, form.Slug, "cv", "cv.pdf", []byte("%PDF"))
	require.NoError(t, err)
	res, err := e.subs.Submit(ctx, form.Slug, "", "", map[string]any{
		"name": "Ana", "email": "ana@example.org", "why": "calm", "cv": cv.Key, "intro": "ignored", "extra": "dropped",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionSubmitted, res.Submission.Status)
	assert.Equal(t, "ana@example.org", res.Submission.Email)
	assert.Equal(t, []string{cv.Key}, res.Submission.Files)
	assert.NotContains(t, res.Submission.Answers, "extra")
	assert.NotContains(t, res.Submission.Answers, "intro")
	assert.Equal(t, "Thanks!", res.SuccessMessage)
	assert.Equal(t, "https://example.org/next", res.RedirectURL)
	assert.Equal(t, 3, res.RedirectDelay)

	subs, total, err := e.subs.List(ctx, form.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, subs, 1)
}

func TestProducts_Catalog(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.products.Create(ctx, "admin", &models.Product{Name: "Bad", Price: 0, Currency: "USD"})
	assert.ErrorIs(t, err, service.ErrInvalid)

	p, err := e.products.Create(ctx, "admin", &models.Product{
		Name: "Meditation Cushion", Price: 4000, Currency: "usd", IsActive: true,
		Discounts: map[string]int{"gyani": 25},
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, map[string]int{"GYANI": 25}, p.Discounts)

	items, err := e.products.Catalog(ctx, "GYANI")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3000), items[0].MemberPrice)

	items, err = e.products.Catalog(ctx, "free")
	require.NoError(t, err)
	assert.Equal(t, int64(4000), items[0].MemberPrice)
}

var billing = models.BillingDetails{FirstName: "Ana", LastName: "Mora", Email: "ana@example.org"}

func TestCheckout_ProductFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	claims := e.register(t, "ana@example.org")
	p, err := e.products.Create(ctx, "admin", &models.Product{Name: "Course", Price: 12550, Currency: "USD", IsActive: true})
	require.NoError(t, err)

	_, err = e.checkout.StartProduct(ctx, claims, p.ID, models.BillingDetails{FirstName: "Ana"})
	assert.ErrorIs(t, err, checkout.ErrBillingIncomplete)

	params, err := e.checkout.StartProduct(ctx, claims, p.ID, billing)
	require.NoError(t, err)
	assert.Equal(t, "tok", params.Token)
	assert.Equal(t, "merchant-key", params.TilopayKey)
	assert.Equal(t, "125.50", params.Amount)
	assert.Equal(t, checkout.StateSDKLoading, params.Session.State)
	assert.Contains(t, params.Redirect, "session="+params.Session.ID)
	id := params.Session.ID

	_, err = e.checkout.Pay(ctx, claims, id, checkout.CardGate{Number: true, Expiration: true, CVV: true})
	var terr *checkout.TransitionError
	require.True(t, errors.As(err, &terr), "pay blocked before SDK is ready")

	other := e.register(t, "bob@example.org")
	_, err = e.checkout.Get(ctx, other, id)
	assert.ErrorIs(t, err, service.ErrForbidden)

	sess, err := e.checkout.ReportSDK(ctx, claims, id, true, "")
	require.NoError(t, err)
	assert.True(t, sess.CanPay())

	_, err = e.checkout.Pay(ctx, claims, id, checkout.CardGate{Number: true, Expiration: true, CVV: true})
	require.NoError(t, err)

	sess, err = e.checkout.ReportResult(ctx, claims, id, "Success")
	require.NoError(t, err)
	assert.Equal(t, checkout.StateRedirected, sess.State)

	q := gatewayReturn(params, "1", "Approved", "A1")
	res, err := e.checkout.HandleReturn(ctx, id, q)
	require.NoError(t, err)
	assert.True(t, res.Paid)

	order, err := e.orders.FindByNumber(ctx, params.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, order.Status)
	assert.Equal(t, "A1", order.GatewayAuth)

	res, err = e.checkout.HandleReturn(ctx, id, q)
	require.NoError(t, err)
	assert.True(t, res.Paid, "repeat redirect is idempotent")

	q.Set("order", "SOMETHING-ELSE")
	_, err = e.checkout.HandleReturn(ctx, id, q)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestCheckout_ReturnRequiresSignedSubmittedPayment(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	claims := e.register(t, "ana@example.org")
	p, err := e.products.Create(ctx, "admin", &models.Product{Name: "Course", Price: 10000, Currency: "USD", IsActive: true})
	require.NoError(t, err)

	params, err := e.checkout.StartProduct(ctx, claims, p.ID, billing)
	require.NoError(t, err)
	id := params.Session.ID

	_, err = e.checkout.HandleReturn(ctx, id, url.Values{"code": {"1"}, "order": {params.OrderNumber}})
	assert.ErrorIs(t, err, service.ErrInvalid, "unsigned")

	forged := gatewayReturn(params, "2", "Approved", "A1")
	forged.Set("code", "1")
	_, err = e.checkout.HandleReturn(ctx, id, forged)
	assert.ErrorIs(t, err, service.ErrForbidden, "bad signature")

	_, err = e.checkout.HandleReturn(ctx, id, gatewayReturn(params, "1", "Approved", "A1"))
	var terr *checkout.TransitionError
	require.True(t, errors.As(err, &terr), "signed approval before pay")
	assert.Equal(t, checkout.StateSDKLoading, terr.From)

	order, err := e.orders.FindByNumber(ctx, params.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
	sess, err := e.checkout.Get(ctx, claims, id)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateSDKLoading, sess.State)
}

func TestCheckout_GatewayDeclineThenRetry(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	claims := e.register(t, "ana@example.org")
	p, err := e.products.Create(ctx, "admin", &models.Product{Name: "Course", Price: 2500, Currency: "USD", IsActive: true})
	require.NoError(t, err)

	submit := func() *service.SDKParams {
		params, err := e.checkout.StartProduct(ctx, claims, p.ID, billing)
		require.NoError(t, err)
		_, err = e.checkout.ReportSDK(ctx, claims, params.Session.ID, true, "")
		require.NoError(t, err)
		_, err = e.checkout.Pay(ctx, claims, params.Session.ID, checkout.CardGate{Number: true, Expiration: true, CVV: true})
		require.NoError(t, err)
		return params
	}

	params := submit()
	id := params.Session.ID
	res, err := e.checkout.HandleReturn(ctx, id, gatewayReturn(params, "2", "Card declined", ""))
	require.NoError(t, err)
	assert.False(t, res.Paid)
	assert.Equal(t, "Card declined", res.Message)
	assert.Equal(t, checkout.StateError, res.Session.State)
	assert.Equal(t, "Card declined", res.Session.Error)

	order, err := e.orders.FindByNumber(ctx, params.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, order.Status)
	assert.Equal(t, "Card declined", order.GatewayMessage)

	retry, err := e.checkout.Retry(ctx, claims, id)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateSDKReady, retry.Session.State)
	order, err = e.orders.FindByNumber(ctx, params.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)

	params = submit()
	res, err = e.checkout.HandleReturn(ctx, params.Session.ID, gatewayReturn(params, "0", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "Payment declined", res.Message)
}

func TestCheckout_DeclineAndRetry(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	claims := e.register(t, "ana@example.org")
	p, err := e.products.Create(ctx, "admin", &models.Product{Name: "Course", Price: 1000, Currency: "USD", IsActive: true})
	require.NoError(t, err)

	params, err := e.checkout.StartProduct(ctx, claims, p.ID, billing)
	require.NoError(t, err)
	id := params.Session.ID
	_, err = e.checkout.ReportSDK(ctx, claims, id, true, "")
	require.NoError(t, err)
	_, err = e.checkout.Pay(ctx, claims, id, checkout.CardGate{Number: true, Expiration: true, CVV: true})
	require.NoError(t, err)

	sess, err := e.checkout.ReportResult(ctx, claims, id, "Insufficient funds")
	require.NoError(t, err)
	assert.Equal(t, checkout.StateError, sess.State)
	assert.Equal(t, "Insufficient funds", sess.Error)

	order, err := e.orders.FindByNumber(ctx, params.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, order.Status)

	retry, err := e.checkout.Retry(ctx, claims, id)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateSDKReady, retry.Session.State)
	assert.Empty(t, retry.Token, "SDK already initialized")

	order, err = e.orders.FindByNumber(ctx, params.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
}

func TestCheckout_TokenFailureThenRetry(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	claims := e.register(t, "ana@example.org")
	p, err := e.products.Create(ctx, "admin", &models.Product{Name: "Course", Price: 1000, Currency: "USD", IsActive: true})
	require.NoError(t, err)

	e.gateway.err = errors.New("gateway down")
	_, err = e.checkout.StartProduct(ctx, claims, p.ID, billing)
	assert.ErrorIs(t, err, service.ErrUpstream)

	orders, err := e.orders.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, orders.ByStatus[models.OrderPending])

	e.gateway.err = nil
	params, err := e.checkout.StartProduct(ctx, claims, p.ID, billing)
	require.NoError(t, err)
	id := params.Session.ID

	_, err = e.checkout.ReportSDK(ctx, claims, id, false, "Invalid key")
	require.NoError(t, err)
	sess, err := e.checkout.Get(ctx, claims, id)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateError, sess.State)
	assert.False(t, sess.SDKInitialized)

	retry, err := e.checkout.Retry(ctx, claims, id)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateSDKLoading, retry.Session.State)
	assert.Equal(t, "tok", retry.Token)
}

func TestCheckout_ApplicationMarksSubmissionPaid(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	claims := e.register(t, "ana@example.org")
	form, err := e.forms.Create(ctx, "admin", retreatForm(true))
	require.NoError(t, err)

	res, err := e.subs.Submit(ctx, form.Slug, claims.UserID, claims.Email, map[string]any{
		"name": "Ana", "email": "ana@example.org", "why": "calm",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionPaymentPending, res.Submission.Status)

	params, err := e.checkout.StartApplication(ctx, claims, res.Submission.ID, billing)
	require.NoError(t, err)
	assert.Equal(t, "50.00", params.Amount)

	id := params.Session.ID
	_, err = e.checkout.ReportSDK(ctx, claims, id, true, "")
	require.NoError(t, err)
	_, err = e.checkout.Pay(ctx, claims, id, checkout.CardGate{Number: true, Expiration: true, CVV: true})
	require.NoError(t, err)

	ret, err := e.checkout.HandleReturn(ctx, id, gatewayReturn(params, "1", "", "A9"))
	require.NoError(t, err)
	assert.True(t, ret.Paid)
	assert.Equal(t, checkout.StateRedirected, ret.Session.State, "approval moves a processing session to redirected")

	sub, err := e.subs.Get(ctx, res.Submission.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionPaid, sub.Status)

	_, err = e.checkout.StartApplication(ctx, claims, res.Submission.ID, billing)
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestMembership_Update(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	claims := e.register(t, "ana@example.org")
	e.cms.users["ana@example.org"] = &strapi.User{ID: 42, Email: "ana@example.org"}

	resp, err := e.members.Update(ctx, "admin", claims.UserID, service.MembershipRequest{Plan: "Pragyani+ yearly", Billing: "yearly"})
	require.NoError(t, err)
	assert.Equal(t, "PRAGYANIPLUS", resp.MembershipTier)
	assert.False(t, resp.IsTrial)

	require.Len(t, e.cms.updates, 1)
	upd := e.cms.updates[0]
	start, err := time.Parse("2006-01-02", upd.MembershipStartDate)
	require.NoError(t, err)
	end, err := time.Parse("2006-01-02", upd.MembershipEndDate)
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(1, 0, 0), end)

	resp, err = e.members.Update(ctx, "admin", claims.UserID, service.MembershipRequest{Plan: "gyani", TrialDays: 14})
	require.NoError(t, err)
	assert.Equal(t, "GYANI", resp.MembershipTier)
	assert.True(t, resp.IsTrial)

	u, err := e.users.FindByID(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, "42", u.StrapiID)

	_, err = e.members.Update(ctx, "admin", claims.UserID, service.MembershipRequest{Plan: "gyani", Billing: "weekly"})
	assert.ErrorIs(t, err, service.ErrInvalid)

	bob := e.register(t, "bob@example.org")
	_, err = e.members.Update(ctx, "admin", bob.UserID, service.MembershipRequest{Plan: "gyani"})
	assert.ErrorIs(t, err, service.ErrNotFound)

	logs, total, err := e.audit.List(ctx, "user", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "membership.update", logs[0].Action)
}

func TestDashboard_Summary(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "ana@example.org")
	form, err := e.forms.Create(ctx, "admin", retreatForm(false))
	require.NoError(t, err)
	_, err = e.subs.Submit(ctx, form.Slug, "", "", map[string]any{"name": "A", "email": "a@b.c", "why": "x"})
	require.NoError(t, err)

	d, err := e.dash.Summary(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, 1, d.UserCount)
	assert.Equal(t, 1, d.UsersByTier["free"])
	assert.Equal(t, 1, d.FormCount)
	assert.Equal(t, 1, d.SubmissionCount)
	require.Len(t, d.Forms, 1)
	assert.Equal(t, 1, d.Forms[0].SubmissionCount)
	assert.Equal(t, 2, d.Campaigns)
	assert.Equal(t, 1, d.BookGroups)
	assert.Equal(t, []string{"automations unavailable"}, d.Warnings)
}

func TestFiles_Upload(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	form, err := e.forms.Create(ctx, "admin", retreatForm(false))
	require.NoError(t, err)

	_, err = e.files.Upload(ctx, form.Slug, "cv", "cv.exe", []byte("MZ"))
	assert.ErrorIs(t, err, service.ErrInvalid)
	_, err = e.files.Upload(ctx, form.Slug, "name", "cv.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, service.ErrInvalid)

	up, err := e.files.Upload(ctx, form.Slug, "cv", "cv.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", up.ContentType)

	data, ct, err := e.files.Download(ctx, up.Key)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
	assert.Equal(t, "application/pdf", ct)

	_, _, err = e.files.Download(ctx, "missing_key.pdf")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestSubmissions_FileAnswerMustBeStoredUpload(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	form, err := e.forms.Create(ctx, "admin", retreatForm(false))
	require.NoError(t, err)
	other := retreatForm(false)
	other.Title = "Winter Retreat"
	otherForm, err := e.forms.Create(ctx, "admin", other)
	require.NoError(t, err)

	answers := func(key string) map[string]any {
		return map[string]any{"name": "Ana", "email": "a@b.c", "why": "calm", "cv": key}
	}

	up, err := e.files.Upload(ctx, form.Slug, "cv", "cv.pdf", []byte("%PDF"))
	require.NoError(t, err)
	foreign, err := e.files.Upload(ctx, otherForm.Slug, "cv", "cv.pdf", []byte("%PDF"))
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
	}{
		{"made up key", "k_cv.pdf"},
		{"upload for another form", foreign.Key},
		{"never stored", up.Key[:13] + "00000000-0000-0000-0000-000000000000_cv.pdf"},
		{"path escape", up.Key[:13] + "../cv.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.subs.Submit(ctx, form.Slug, "", "", answers(tt.key))
			assert.ErrorIs(t, err, service.ErrInvalid)
		})
	}

	res, err := e.subs.Submit(ctx, form.Slug, "", "", answers(up.Key))
	require.NoError(t, err)
	assert.Equal(t, []string{up.Key}, res.Submission.Files)

	subs, total, err := e.subs.List(ctx, form.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, subs, 1)
}
