package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parisxmas/sangha/internal/db"
	"github.com/parisxmas/sangha/internal/models"
)

type OrderRepo struct {
	db *db.DB
}

func NewOrderRepo(d *db.DB) *OrderRepo {
	return &OrderRepo{db: d}
}

const orderColumns = `id, order_number, kind, product_id, submission_id, user_id, amount, currency, status, billing, gateway_message, gateway_auth, created_at, updated_at`

func (r *OrderRepo) Create(ctx context.Context, o *models.Order) (string, error) {
	if o.ID == "" {
		o.ID = newID()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNumber, o.Kind, o.ProductID, o.SubmissionID, o.UserID, o.Amount, o.Currency, o.Status,
		toJSON(o.Billing), o.GatewayMessage, o.GatewayAuth, formatTime(o.CreatedAt), formatTime(o.UpdatedAt))
	if isUniqueViolation(err) {
		return "", fmt.Errorf("order %s: %w", o.OrderNumber, ErrDuplicate)
	}
	if err != nil {
		return "", err
	}
	return o.ID, nil
}

func (r *OrderRepo) FindByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return notFound(scanOrder(row))
}

func (r *OrderRepo) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = ?`, number)
	return notFound(scanOrder(row))
}

// SetStatus records the gateway outcome on an order.
func (r *OrderRepo) SetStatus(ctx context.Context, id, status, message, auth string) error {
	_, err := r.db.Exec(ctx, `UPDATE orders SET status = ?, gateway_message = ?, gateway_auth = ?, updated_at = ? WHERE id = ?`,
		status, message, auth, formatTime(time.Now()), id)
	return err
}

// OrderStats aggregates order counts and paid revenue per currency.
type OrderStats struct {
	ByStatus map[string]int   `json:"byStatus"`
	Revenue  map[string]int64 `json:"revenue"`
}

func (r *OrderRepo) Stats(ctx context.Context) (*OrderStats, error) {
	stats := &OrderStats{ByStatus: map[string]int{}, Revenue: map[string]int64{}}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByStatus[status] = n
	}
	rows.Close()

	rows, err = r.db.Query(ctx, `SELECT currency, SUM(amount) FROM orders WHERE status = ? GROUP BY currency`, models.OrderPaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var currency string
		var sum int64
		if err := rows.Scan(&currency, &sum); err != nil {
			return nil, err
		}
		stats.Revenue[currency] = sum
	}
	return stats, rows.Err()
}

func scanOrder(s scanner) (*models.Order, error) {
	var o models.Order
	var billing, created, updated string
	err := s.Scan(&o.ID, &o.OrderNumber, &o.Kind, &o.ProductID, &o.SubmissionID, &o.UserID, &o.Amount,
		&o.Currency, &o.Status, &billing, &o.GatewayMessage, &o.GatewayAuth, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(billing), &o.Billing); err != nil {
		return nil, fmt.Errorf("unmarshal order billing: %w", err)
	}
	o.CreatedAt = parseTime(created)
	o.UpdatedAt = parseTime(updated)
	return &o, nil
}
