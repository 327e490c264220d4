// Package backend reads email campaigns, automations and book groups from
// the email/community REST service. Calls forward the caller's bearer
// token; the service does its own authorization.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Record is one DTO as the service returns it.
type Record = map[string]any

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) list(ctx context.Context, token, path string) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(raw, &detail) == nil && detail.Detail != "" {
			msg = detail.Detail
		}
		return nil, &Error{Status: resp.StatusCode, Message: msg}
	}

	var out []Record
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("backend: decode %s: %w", path, err)
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

func (c *Client) ListCampaigns(ctx context.Context, token string) ([]Record, error) {
	return c.list(ctx, token, "/api/email/campaigns")
}

func (c *Client) ListAutomations(ctx context.Context, token string) ([]Record, error) {
	return c.list(ctx, token, "/api/email/automations")
}

func (c *Client) ListBookGroups(ctx context.Context, token string) ([]Record, error) {
	return c.list(ctx, token, "/api/book-groups")
}
