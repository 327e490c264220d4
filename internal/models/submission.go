package models

import "time"

const (
	SubmissionSubmitted      = "submitted"
	SubmissionPaymentPending = "payment_pending"
	SubmissionPaid           = "paid"
)

type Submission struct {
	ID        string         `json:"id"`
	FormID    string         `json:"form_id"`
	Answers   map[string]any `json:"answers"`
	Files     []string       `json:"files,omitempty"` // storage keys
	UserID    string         `json:"user_id,omitempty"`
	Email     string         `json:"email,omitempty"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
