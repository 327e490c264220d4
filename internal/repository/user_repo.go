package repository

import (
	"context"
	"fmt"

	"github.com/parisxmas/sangha/internal/db"
	"github.com/parisxmas/sangha/internal/models"
)

type UserRepo struct {
	db *db.DB
}

func NewUserRepo(d *db.DB) *UserRepo {
	return &UserRepo{db: d}
}

const userColumns = `id, email, password_hash, name, role, strapi_id, membership_tier, membership_start, membership_end, is_trial, created_at`

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return notFound(scanUser(row))
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return notFound(scanUser(row))
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) (string, error) {
	if user.ID == "" {
		user.ID = newID()
	}
	if user.MembershipTier == "" {
		user.MembershipTier = "free"
	}
	_, err := r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Role, user.StrapiID,
		user.MembershipTier, user.MembershipStart, user.MembershipEnd, user.IsTrial, formatTime(user.CreatedAt))
	if isUniqueViolation(err) {
		return "", fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
	}
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// UpdateMembership stores the membership columns and the Strapi id.
func (r *UserRepo) UpdateMembership(ctx context.Context, user *models.User) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET strapi_id = ?, membership_tier = ?, membership_start = ?, membership_end = ?, is_trial = ? WHERE id = ?`,
		user.StrapiID, user.MembershipTier, user.MembershipStart, user.MembershipEnd, user.IsTrial, user.ID)
	return err
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountByTier returns member counts keyed by tier.
func (r *UserRepo) CountByTier(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT membership_tier, COUNT(*) FROM users GROUP BY membership_tier`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, err
		}
		out[tier] = n
	}
	return out, rows.Err()
}

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	var created string
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.StrapiID,
		&u.MembershipTier, &u.MembershipStart, &u.MembershipEnd, &u.IsTrial, &created)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}
