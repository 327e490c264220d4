package models

import "time"

type Product struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"` // minor units
	Currency    string `json:"currency"`
	// Discounts maps a membership tier to a percentage off Price.
	Discounts map[string]int `json:"discounts,omitempty"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
