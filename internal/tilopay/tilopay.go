// Package tilopay talks to the Tilopay gateway: it fetches SDK tokens and
// interprets the browser redirect after a payment attempt.
package tilopay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Error is a non-2xx gateway response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("tilopay: status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL  string
	user     string
	password string
	key      string
	http     *http.Client
}

func New(baseURL, user, password, key string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		user:     user,
		password: password,
		key:      key,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Key is the merchant API key handed to the browser SDK alongside the token.
func (c *Client) Key() string { return c.key }

type loginRequest struct {
	APIUser  string `json:"apiuser"`
	Password string `json:"password"`
	Key      string `json:"key"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token logs in with the merchant credentials and returns an SDK access
// token.
func (c *Client) Token(ctx context.Context) (string, error) {
	body, err := json.Marshal(loginRequest{APIUser: c.user, Password: c.password, Key: c.key})
	if err != nil {
		return "", fmt.Errorf("tilopay: marshal login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/loginSdk", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("tilopay: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tilopay: login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("tilopay: decode login: %w", err)
	}
	if out.AccessToken == "" {
		return "", &Error{Status: resp.StatusCode, Message: "empty access token"}
	}
	return out.AccessToken, nil
}

// Redirect is what the gateway appends to the redirect URL after a payment
// attempt.
type Redirect struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Auth        string `json:"auth,omitempty"`
	Order       string `json:"order"`
	Transaction string `json:"transaction,omitempty"`
	Hash        string `json:"-"`
}

// Paid reports an approved transaction. The gateway uses code 1 for
// approval; every other code is a decline or an error.
func (r Redirect) Paid() bool {
	return r.Code == "1"
}

var (
	ErrIncompleteRedirect = errors.New("tilopay: incomplete redirect")
	ErrBadSignature       = errors.New("tilopay: redirect signature mismatch")
)

// Order is the merchant's record of the order a redirect claims to settle.
// Amount uses the same decimal form the SDK was given.
type Order struct {
	Number   string
	Amount   string
	Currency string
	Email    string
}

// VerifyRedirect parses the redirect query and checks its OrderHash against
// the merchant's own record of the order. The order number in the query
// must match o.Number.
func (c *Client) VerifyRedirect(q url.Values, o Order) (Redirect, error) {
	r := Redirect{
		Code:        q.Get("code"),
		Description: q.Get("description"),
		Auth:        q.Get("auth"),
		Order:       q.Get("order"),
		Transaction: q.Get("tilopay-transaction"),
		Hash:        q.Get("OrderHash"),
	}
	switch {
	case r.Order == "":
		return r, fmt.Errorf("%w: no order number", ErrIncompleteRedirect)
	case r.Code == "":
		return r, fmt.Errorf("%w: no result code", ErrIncompleteRedirect)
	case r.Hash == "":
		return r, fmt.Errorf("%w: no OrderHash", ErrIncompleteRedirect)
	case r.Order != o.Number:
		return r, fmt.Errorf("%w: order %s", ErrBadSignature, r.Order)
	}
	want := c.orderHash(r, o)
	got := strings.ToLower(r.Hash)
	if !hmac.Equal([]byte(got), []byte(want)) {
		return r, ErrBadSignature
	}
	return r, nil
}

// orderHash is HMAC-SHA256 over the form-encoded redirect fields in the
// gateway's order, keyed with "order|key|password".
func (c *Client) orderHash(r Redirect, o Order) string {
	fields := [][2]string{
		{"api_Key", c.key},
		{"api_user", c.user},
		{"orderId", o.Number},
		{"external_orden_id", r.Transaction},
		{"amount", o.Amount},
		{"currency", o.Currency},
		{"responseCode", r.Code},
		{"auth", r.Auth},
		{"email", o.Email},
	}
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f[1]))
	}
	mac := hmac.New(sha256.New, []byte(o.Number+"|"+c.key+"|"+c.password))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}
