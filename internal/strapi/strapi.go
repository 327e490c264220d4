// Package strapi is a small client for the Strapi CMS REST API, which owns
// member accounts, instructors and courses.
package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Error is a non-2xx Strapi response. Message is taken from Strapi's error
// envelope when present.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("strapi: status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// User is a users-permissions account with the membership fields this
// platform writes.
type User struct {
	ID                  int    `json:"id"`
	Username            string `json:"username"`
	Email               string `json:"email"`
	Membership          string `json:"membership,omitempty"`
	MembershipStartDate string `json:"membershipStartDate,omitempty"`
	MembershipEndDate   string `json:"membershipEndDate,omitempty"`
	IsTrial             bool   `json:"isTrial"`
}

// MembershipUpdate is the body of PUT /api/users/{id}. The users endpoint
// takes the fields bare, without the {"data": ...} wrapper of content types.
type MembershipUpdate struct {
	Membership          string `json:"membership"`
	MembershipStartDate string `json:"membershipStartDate"`
	MembershipEndDate   string `json:"membershipEndDate"`
	IsTrial             bool   `json:"isTrial"`
}

// Collection is a content-type listing.
type Collection struct {
	Data  []map[string]any `json:"data"`
	Total int              `json:"total"`
}

type collectionResponse struct {
	Data []map[string]any `json:"data"`
	Meta struct {
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("strapi: marshal: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("strapi: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("strapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		msg := strings.TrimSpace(string(raw))
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("strapi: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FindUserByEmail matches case-insensitively. It returns nil, nil when no
// account has the email.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	q := url.Values{"filters[email][$eqi]": {email}}
	var users []User
	if err := c.do(ctx, http.MethodGet, "/api/users?"+q.Encode(), nil, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (c *Client) UpdateUser(ctx context.Context, id int, upd MembershipUpdate) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPut, "/api/users/"+strconv.Itoa(id), upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) list(ctx context.Context, collection string) (*Collection, error) {
	var resp collectionResponse
	if err := c.do(ctx, http.MethodGet, "/api/"+collection+"?populate=*", nil, &resp); err != nil {
		return nil, err
	}
	total := resp.Meta.Pagination.Total
	if total == 0 {
		total = len(resp.Data)
	}
	return &Collection{Data: resp.Data, Total: total}, nil
}

func (c *Client) ListInstructors(ctx context.Context) (*Collection, error) {
	return c.list(ctx, "instructors")
}

func (c *Client) ListCourses(ctx context.Context) (*Collection, error) {
	return c.list(ctx, "courses")
}

// ContentTypeSchema returns the content-type-builder description of uid,
// e.g. "api::course.course".
func (c *Client) ContentTypeSchema(ctx context.Context, uid string) (json.RawMessage, error) {
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/content-type-builder/content-types/"+url.PathEscape(uid), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
