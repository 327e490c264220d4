package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/parisxmas/sangha/internal/db"
	"github.com/parisxmas/sangha/internal/models"
)

type FormRepo struct {
	db *db.DB
}

func NewFormRepo(d *db.DB) *FormRepo {
	return &FormRepo{db: d}
}

const formColumns = `id, slug, title, name, description, questions, success_message, success_redirect, redirect_delay, requires_payment, payment_amount, payment_currency, is_active, created_by, created_at, updated_at`

func (r *FormRepo) Create(ctx context.Context, form *models.FormTemplate) (string, error) {
	if form.ID == "" {
		form.ID = newID()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO form_templates (`+formColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		form.ID, form.Slug, form.Title, form.Name, form.Description, toJSON(form.Questions),
		form.SuccessMessage, form.SuccessRedirect, form.RedirectDelaySeconds, form.RequiresPayment,
		form.PaymentAmount, form.PaymentCurrency, form.IsActive, form.CreatedBy,
		formatTime(form.CreatedAt), formatTime(form.UpdatedAt))
	if isUniqueViolation(err) {
		return "", fmt.Errorf("form slug %s: %w", form.Slug, ErrDuplicate)
	}
	if err != nil {
		return "", err
	}
	return form.ID, nil
}

func (r *FormRepo) FindAll(ctx context.Context) ([]models.FormTemplate, error) {
	rows, err := r.db.Query(ctx, `SELECT `+formColumns+` FROM form_templates ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	forms := make([]models.FormTemplate, 0)
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, *f)
	}
	return forms, rows.Err()
}

func (r *FormRepo) FindByID(ctx context.Context, id string) (*models.FormTemplate, error) {
	row := r.db.QueryRow(ctx, `SELECT `+formColumns+` FROM form_templates WHERE id = ?`, id)
	return notFound(scanForm(row))
}

func (r *FormRepo) FindBySlug(ctx context.Context, slug string) (*models.FormTemplate, error) {
	row := r.db.QueryRow(ctx, `SELECT `+formColumns+` FROM form_templates WHERE slug = ?`, slug)
	return notFound(scanForm(row))
}

func (r *FormRepo) Update(ctx context.Context, form *models.FormTemplate) error {
	_, err := r.db.Exec(ctx, `UPDATE form_templates SET title = ?, name = ?, description = ?, questions = ?, success_message = ?, success_redirect = ?, redirect_delay = ?, requires_payment = ?, payment_amount = ?, payment_currency = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		form.Title, form.Name, form.Description, toJSON(form.Questions), form.SuccessMessage,
		form.SuccessRedirect, form.RedirectDelaySeconds, form.RequiresPayment, form.PaymentAmount,
		form.PaymentCurrency, form.IsActive, formatTime(form.UpdatedAt), form.ID)
	return err
}

func (r *FormRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM form_templates WHERE id = ?`, id)
	return err
}

func (r *FormRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM form_templates`).Scan(&n)
	return n, err
}

func scanForm(s scanner) (*models.FormTemplate, error) {
	var f models.FormTemplate
	var questions, created, updated string
	err := s.Scan(&f.ID, &f.Slug, &f.Title, &f.Name, &f.Description, &questions,
		&f.SuccessMessage, &f.SuccessRedirect, &f.RedirectDelaySeconds, &f.RequiresPayment,
		&f.PaymentAmount, &f.PaymentCurrency, &f.IsActive, &f.CreatedBy, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questions), &f.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal form questions: %w", err)
	}
	f.CreatedAt = parseTime(created)
	f.UpdatedAt = parseTime(updated)
	return &f, nil
}
