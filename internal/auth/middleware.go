package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserContextKey  contextKey = "user"
	TokenContextKey contextKey = "token"
)

func bearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func deny(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func withClaims(r *http.Request, claims *Claims, token string) *http.Request {
	ctx := context.WithValue(r.Context(), UserContextKey, claims)
	ctx = context.WithValue(ctx, TokenContextKey, token)
	return r.WithContext(ctx)
}

// Middleware rejects requests without a valid bearer token.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearer(r)
			if tokenStr == "" {
				deny(w, http.StatusUnauthorized, `{"error":"unauthorized"}`)
				return
			}
			claims, err := ValidateToken(secret, tokenStr)
			if err != nil {
				deny(w, http.StatusUnauthorized, `{"error":"invalid token"}`)
				return
			}
			next.ServeHTTP(w, withClaims(r, claims, tokenStr))
		})
	}
}

// Optional attaches claims when a valid token is present and otherwise lets
// the request through anonymously.
func Optional(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr := bearer(r); tokenStr != "" {
				if claims, err := ValidateToken(secret, tokenStr); err == nil {
					r = withClaims(r, claims, tokenStr)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole must run after Middleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUser(r.Context())
			if claims == nil {
				deny(w, http.StatusUnauthorized, `{"error":"unauthorized"}`)
				return
			}
			if claims.Role != role {
				deny(w, http.StatusForbidden, `{"error":"forbidden"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetUser(ctx context.Context) *Claims {
	claims, _ := ctx.Value(UserContextKey).(*Claims)
	return claims
}

// GetToken returns the raw bearer token for forwarding to other services.
func GetToken(ctx context.Context) string {
	tok, _ := ctx.Value(TokenContextKey).(string)
	return tok
}
