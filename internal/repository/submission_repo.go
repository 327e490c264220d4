package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parisxmas/sangha/internal/db"
	"github.com/parisxmas/sangha/internal/models"
)

type SubmissionRepo struct {
	db *db.DB
}

func NewSubmissionRepo(d *db.DB) *SubmissionRepo {
	return &SubmissionRepo{db: d}
}

const submissionColumns = `id, form_id, answers, files, user_id, email, status, created_at, updated_at`

func (r *SubmissionRepo) Create(ctx context.Context, sub *models.Submission) (string, error) {
	if sub.ID == "" {
		sub.ID = newID()
	}
	files := sub.Files
	if files == nil {
		files = []string{}
	}
	_, err := r.db.Exec(ctx, `INSERT INTO submissions (`+submissionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.FormID, toJSON(sub.Answers), toJSON(files), sub.UserID, sub.Email, sub.Status,
		formatTime(sub.CreatedAt), formatTime(sub.UpdatedAt))
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (r *SubmissionRepo) FindByFormID(ctx context.Context, formID string, skip, limit int) ([]models.Submission, int, error) {
	total, err := r.CountByFormID(ctx, formID)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE form_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		formID, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	subs := make([]models.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, *s)
	}
	return subs, total, rows.Err()
}

func (r *SubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	row := r.db.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	return notFound(scanSubmission(row))
}

func (r *SubmissionRepo) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.Exec(ctx, `UPDATE submissions SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(time.Now()), id)
	return err
}

func (r *SubmissionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	return err
}

func (r *SubmissionRepo) CountByFormID(ctx context.Context, formID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM submissions WHERE form_id = ?`, formID).Scan(&n)
	return n, err
}

func (r *SubmissionRepo) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n)
	return n, err
}

func scanSubmission(s scanner) (*models.Submission, error) {
	var sub models.Submission
	var answers, files, created, updated string
	err := s.Scan(&sub.ID, &sub.FormID, &answers, &files, &sub.UserID, &sub.Email, &sub.Status, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal submission answers: %w", err)
	}
	if err := json.Unmarshal([]byte(files), &sub.Files); err != nil {
		return nil, fmt.Errorf("unmarshal submission files: %w", err)
	}
	sub.CreatedAt = parseTime(created)
	sub.UpdatedAt = parseTime(updated)
	return &sub, nil
}
