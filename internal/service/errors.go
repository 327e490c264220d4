package service

import (
	"errors"
	"fmt"

	"github.com/parisxmas/sangha/internal/forms"
)

// Sentinel errors. Services wrap them with context; handlers map them to
// status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalid      = errors.New("invalid request")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrUpstream     = errors.New("upstream service failed")
)

// ValidationError carries per-question messages for one form page.
type ValidationError struct {
	Page   int
	Errors forms.Errors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("page %d has %d invalid answer(s)", e.Page, len(e.Errors))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalid)...)
}
