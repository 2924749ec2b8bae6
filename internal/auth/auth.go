// Package auth resolves the calling user of an HTTP request. Sessions live in
// an external identity provider; this service only trusts what the gateway
// or an API key tells it.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// DefaultUserHeader is set by the authenticating gateway.
const DefaultUserHeader = "X-User-ID"

// Provider extracts the authenticated user id from a request.
type Provider interface {
	UserID(r *http.Request) (string, bool)
}

// HeaderProvider trusts a header set by an upstream gateway. When Trusted is
// set, the header is honored only on requests it accepts.
type HeaderProvider struct {
	Header  string
	Trusted func(*http.Request) bool
}

func (p HeaderProvider) UserID(r *http.Request) (string, bool) {
	if p.Trusted != nil && !p.Trusted(r) {
		return "", false
	}
	header := p.Header
	if header == "" {
		header = DefaultUserHeader
	}
	id := strings.TrimSpace(r.Header.Get(header))
	return id, id != ""
}

// APIKeyProvider maps bearer tokens to user ids.
type APIKeyProvider struct {
	keys map[string]string
}

func NewAPIKeyProvider(keys map[string]string) *APIKeyProvider {
	cp := make(map[string]string, len(keys))
	for k, v := range keys {
		cp[k] = v
	}
	return &APIKeyProvider{keys: cp}
}

// ParseAPIKeys parses "key:user,key:user".
func ParseAPIKeys(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, user, ok := strings.Cut(pair, ":")
		key, user = strings.TrimSpace(key), strings.TrimSpace(user)
		if !ok || key == "" || user == "" {
			return nil, fmt.Errorf("invalid api key entry %q, expected key:user", pair)
		}
		out[key] = user
	}
	return out, nil
}

func (p *APIKeyProvider) UserID(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(authz, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	for key, user := range p.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1 {
			return user, true
		}
	}
	return "", false
}

// Chain tries each provider in order.
type Chain []Provider

func (c Chain) UserID(r *http.Request) (string, bool) {
	for _, p := range c {
		if id, ok := p.UserID(r); ok {
			return id, true
		}
	}
	return "", false
}

type contextKey struct{}

// WithUserID stores id in ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// UserIDFromContext returns the user id stored by Middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// Middleware rejects requests without a user via onUnauthorized and stores
// the user id in the request context otherwise.
func Middleware(p Provider, onUnauthorized http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := p.UserID(r)
			if !ok {
				onUnauthorized(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}
