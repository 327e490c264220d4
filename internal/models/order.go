package models

import (
	"strings"
	"time"
)

const (
	OrderKindProduct     = "product"
	OrderKindApplication = "application"

	OrderPending = "pending"
	OrderPaid    = "paid"
	OrderFailed  = "failed"
)

type BillingDetails struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	ZipCode   string `json:"zip_code,omitempty"`
	Country   string `json:"country,omitempty"`
}

// FullName joins first and last name.
func (b BillingDetails) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

type Order struct {
	ID             string         `json:"id"`
	OrderNumber    string         `json:"order_number"`
	Kind           string         `json:"kind"`
	ProductID      string         `json:"product_id,omitempty"`
	SubmissionID   string         `json:"submission_id,omitempty"`
	UserID         string         `json:"user_id,omitempty"`
	Amount         int64          `json:"amount"` // minor units
	Currency       string         `json:"currency"`
	Status         string         `json:"status"`
	Billing        BillingDetails `json:"billing"`
	GatewayMessage string         `json:"gateway_message,omitempty"`
	GatewayAuth    string         `json:"gateway_auth,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
