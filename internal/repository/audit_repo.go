package repository

import (
	"context"

	"github.com/parisxmas/sangha/internal/db"
	"github.com/parisxmas/sangha/internal/models"
)

type AuditRepo struct {
	db *db.DB
}

func NewAuditRepo(d *db.DB) *AuditRepo {
	return &AuditRepo{db: d}
}

func (r *AuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = newID()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO audit_logs (id, actor_id, action, entity, entity_id, detail, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ActorID, entry.Action, entry.Entity, entry.EntityID, entry.Detail, formatTime(entry.CreatedAt))
	return err
}

// List returns entries newest first, optionally filtered by entity.
func (r *AuditRepo) List(ctx context.Context, entity string, skip, limit int) ([]models.AuditLog, int, error) {
	where := ""
	var args []any
	if entity != "" {
		where = ` WHERE entity = ?`
		args = append(args, entity)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT id, actor_id, action, entity, entity_id, detail, created_at FROM audit_logs`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, limit, skip)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]models.AuditLog, 0)
	for rows.Next() {
		var e models.AuditLog
		var created string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Detail, &created); err != nil {
			return nil, 0, err
		}
		e.CreatedAt = parseTime(created)
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
