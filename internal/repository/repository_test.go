package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/parisxmas/sangha/internal/db"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, db.DriverSQLite, ":memory:", 1)
	require.NoError(t, err)
	require.NoError(t, d.Migrate(ctx))
	t.Cleanup(func() { d.Close() })
	return d
}

func TestUserRepo_CreateFindUpdate(t *testing.T) {
	ctx := context.Background()
	users := repository.NewUserRepo(openDB(t))

	u := &models.User{Email: "ana@example.org", PasswordHash: "h", Name: "Ana", Role: models.RoleUser, CreatedAt: time.Now()}
	id, err := users.Create(ctx, u)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = users.Create(ctx, &models.User{Email: "ana@example.org", PasswordHash: "h", Name: "Dup", Role: models.RoleUser})
	assert.True(t, errors.Is(err, repository.ErrDuplicate))

	got, err := users.FindByEmail(ctx, "ana@example.org")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "free", got.MembershipTier)
	assert.False(t, got.IsTrial)

	got.StrapiID = "42"
	got.MembershipTier = "GYANI"
	got.MembershipStart = "2026-01-01"
	got.MembershipEnd = "2026-01-15"
	got.IsTrial = true
	require.NoError(t, users.UpdateMembership(ctx, got))

	again, err := users.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "GYANI", again.MembershipTier)
	assert.True(t, again.IsTrial)
	assert.Equal(t, "42", again.StrapiID)

	tiers, err := users.CountByTier(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tiers["GYANI"])

	missing, err := users.FindByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFormRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	forms := repository.NewFormRepo(openDB(t))

	now := time.Now()
	f := &models.FormTemplate{
		Slug:  "retreat-application",
		Title: "Retreat Application",
		Name:  "retreat",
		Questions: []models.FormQuestion{
			{ID: "q1", QuestionText: "Name", QuestionType: models.QuestionText, IsRequired: true, Page: 1},
			{ID: "q2", QuestionText: "Diet", QuestionType: models.QuestionRadio, Options: []string{"veg", "vegan"}, Page: 2},
		},
		SuccessMessage:  "Thanks",
		RequiresPayment: true,
		PaymentAmount:   25000,
		PaymentCurrency: "USD",
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	id, err := forms.Create(ctx, f)
	require.NoError(t, err)

	got, err := forms.FindBySlug(ctx, "retreat-application")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Len(t, got.Questions, 2)
	assert.Equal(t, []string{"veg", "vegan"}, got.Questions[1].Options)
	assert.True(t, got.RequiresPayment)
	assert.Equal(t, int64(25000), got.PaymentAmount)

	got.Title = "Retreat Application 2027"
	got.IsActive = false
	require.NoError(t, forms.Update(ctx, got))
	again, err := forms.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Retreat Application 2027", again.Title)
	assert.False(t, again.IsActive)

	_, err = forms.Create(ctx, &models.FormTemplate{Slug: "retreat-application", Title: "x", Name: "x"})
	assert.True(t, errors.Is(err, repository.ErrDuplicate))

	require.NoError(t, forms.Delete(ctx, id))
	n, err := forms.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSubmissionRepo_ListAndStatus(t *testing.T) {
	ctx := context.Background()
	subs := repository.NewSubmissionRepo(openDB(t))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := subs.Create(ctx, &models.Submission{
			FormID:    "f1",
			Answers:   map[string]any{"q1": "answer"},
			Status:    models.SubmissionSubmitted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base,
		})
		require.NoError(t, err)
	}
	_, err := subs.Create(ctx, &models.Submission{FormID: "f2", Answers: map[string]any{}, Status: models.SubmissionSubmitted})
	require.NoError(t, err)

	page, total, err := subs.FindByFormID(ctx, "f1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt), "newest first")

	require.NoError(t, subs.UpdateStatus(ctx, page[0].ID, models.SubmissionPaid))
	got, err := subs.FindByID(ctx, page[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionPaid, got.Status)
	assert.Equal(t, "answer", got.Answers["q1"])
	assert.Empty(t, got.Files)

	all, err := subs.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, all)
}

func TestOrderRepo_StatusAndStats(t *testing.T) {
	ctx := context.Background()
	orders := repository.NewOrderRepo(openDB(t))

	mk := func(num string, amount int64, currency string) string {
		id, err := orders.Create(ctx, &models.Order{
			OrderNumber: num,
			Kind:        models.OrderKindProduct,
			ProductID:   "p1",
			Amount:      amount,
			Currency:    currency,
			Status:      models.OrderPending,
			Billing:     models.BillingDetails{FirstName: "Ana", Email: "ana@example.org"},
		})
		require.NoError(t, err)
		return id
	}
	a := mk("ORD-A", 1000, "USD")
	b := mk("ORD-B", 2500, "USD")
	mk("ORD-C", 5000, "CRC")

	require.NoError(t, orders.SetStatus(ctx, a, models.OrderPaid, "Success", "123456"))
	require.NoError(t, orders.SetStatus(ctx, b, models.OrderPaid, "", ""))

	got, err := orders.FindByNumber(ctx, "ORD-A")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, got.Status)
	assert.Equal(t, "123456", got.GatewayAuth)
	assert.Equal(t, "Ana", got.Billing.FirstName)

	stats, err := orders.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ByStatus[models.OrderPaid])
	assert.Equal(t, 1, stats.ByStatus[models.OrderPending])
	assert.Equal(t, int64(3500), stats.Revenue["USD"])
	assert.NotContains(t, stats.Revenue, "CRC")
}

func TestProductRepo_ActiveFilter(t *testing.T) {
	ctx := context.Background()
	products := repository.NewProductRepo(openDB(t))

	_, err := products.Create(ctx, &models.Product{Slug: "course", Name: "Course", Price: 10000, Currency: "USD", IsActive: true,
		Discounts: map[string]int{"GYANI": 10}})
	require.NoError(t, err)
	_, err = products.Create(ctx, &models.Product{Slug: "old", Name: "Old", Price: 500, Currency: "USD", IsActive: false})
	require.NoError(t, err)

	active, err := products.FindAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 10, active[0].Discounts["GYANI"])

	all, err := products.FindAll(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAuditRepo_ListFiltered(t *testing.T) {
	ctx := context.Background()
	audit := repository.NewAuditRepo(openDB(t))

	now := time.Now()
	require.NoError(t, audit.Create(ctx, &models.AuditLog{Action: "create", Entity: "form", EntityID: "f1", CreatedAt: now}))
	require.NoError(t, audit.Create(ctx, &models.AuditLog{Action: "update", Entity: "membership", EntityID: "u1", CreatedAt: now.Add(time.Second)}))

	entries, total, err := audit.List(ctx, "membership", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].EntityID)

	_, total, err = audit.List(ctx, "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestOrderRepo_PostgresStatement(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	orders := repository.NewOrderRepo(db.New(sqlDB, db.DriverPostgres))
	mock.ExpectExec(`UPDATE orders SET status = \$1, gateway_message = \$2, gateway_auth = \$3, updated_at = \$4 WHERE id = \$5`).
		WithArgs(models.OrderFailed, "Declined", "", sqlmock.AnyArg(), "o-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, orders.SetStatus(context.Background(), "o-1", models.OrderFailed, "Declined", ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}
