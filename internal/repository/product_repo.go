package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/parisxmas/sangha/internal/db"
	"github.com/parisxmas/sangha/internal/models"
)

type ProductRepo struct {
	db *db.DB
}

func NewProductRepo(d *db.DB) *ProductRepo {
	return &ProductRepo{db: d}
}

const productColumns = `id, slug, name, description, price, currency, discounts, is_active, created_at, updated_at`

func (r *ProductRepo) Create(ctx context.Context, p *models.Product) (string, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.Name, p.Description, p.Price, p.Currency, toJSON(discounts(p)), p.IsActive,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if isUniqueViolation(err) {
		return "", fmt.Errorf("product slug %s: %w", p.Slug, ErrDuplicate)
	}
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// FindAll lists products, only active ones when activeOnly is set.
func (r *ProductRepo) FindAll(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *ProductRepo) FindByID(ctx context.Context, id string) (*models.Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return notFound(scanProduct(row))
}

func (r *ProductRepo) Update(ctx context.Context, p *models.Product) error {
	_, err := r.db.Exec(ctx, `UPDATE products SET name = ?, description = ?, price = ?, currency = ?, discounts = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, p.Price, p.Currency, toJSON(discounts(p)), p.IsActive, formatTime(p.UpdatedAt), p.ID)
	return err
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = ?`, id)
	return err
}

func discounts(p *models.Product) map[string]int {
	if p.Discounts == nil {
		return map[string]int{}
	}
	return p.Discounts
}

func scanProduct(s scanner) (*models.Product, error) {
	var p models.Product
	var disc, created, updated string
	err := s.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Price, &p.Currency, &disc, &p.IsActive, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(disc), &p.Discounts); err != nil {
		return nil, fmt.Errorf("unmarshal product discounts: %w", err)
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}
