package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicate is returned when a unique column (email, slug, order number)
// already holds the value.
var ErrDuplicate = errors.New("duplicate key")

func newID() string {
	return uuid.NewString()
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func toJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// isUniqueViolation matches both sqlite ("UNIQUE constraint failed") and
// postgres ("duplicate key value violates unique constraint") messages.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// notFound turns sql.ErrNoRows into (nil, nil), the repository convention
// for a missing row.
func notFound[T any](v *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}
