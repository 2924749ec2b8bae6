package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderProvider(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := HeaderProvider{}.UserID(r)
	assert.False(t, ok)

	r.Header.Set(DefaultUserHeader, " user_1 ")
	id, ok := HeaderProvider{}.UserID(r)
	assert.True(t, ok)
	assert.Equal(t, "user_1", id)

	r.Header.Set("X-Forwarded-User", "user_2")
	id, ok = HeaderProvider{Header: "X-Forwarded-User"}.UserID(r)
	assert.True(t, ok)
	assert.Equal(t, "user_2", id)
}

func TestHeaderProviderTrustedPeers(t *testing.T) {
	p := HeaderProvider{Trusted: func(r *http.Request) bool { return r.RemoteAddr == "10.0.0.1:80" }}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(DefaultUserHeader, "victim")
	r.RemoteAddr = "198.51.100.1:80"
	_, ok := p.UserID(r)
	assert.False(t, ok)

	r.RemoteAddr = "10.0.0.1:80"
	id, ok := p.UserID(r)
	assert.True(t, ok)
	assert.Equal(t, "victim", id)
}

func TestParseAPIKeys(t *testing.T) {
	keys, err := ParseAPIKeys("k1:alice, k2:bob,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k1": "alice", "k2": "bob"}, keys)

	_, err = ParseAPIKeys("k1")
	assert.Error(t, err)
	_, err = ParseAPIKeys("k1:")
	assert.Error(t, err)

	keys, err = ParseAPIKeys("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestAPIKeyProvider(t *testing.T) {
	p := NewAPIKeyProvider(map[string]string{"secret": "alice"})

	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"valid", "Bearer secret", "alice", true},
		{"wrong key", "Bearer nope", "", false},
		{"basic scheme", "Basic secret", "", false},
		{"empty token", "Bearer ", "", false},
		{"missing", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			id, ok := p.UserID(r)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestChainAndMiddleware(t *testing.T) {
	chain := Chain{NewAPIKeyProvider(map[string]string{"k": "bob"}), HeaderProvider{}}

	var seen string
	h := Middleware(chain, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(DefaultUserHeader, "alice")
	r.Header.Set("Authorization", "Bearer k")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", seen)
}

func TestJWTProvider(t *testing.T) {
	p, err := NewJWTProvider("0123456789abcdef0123", "finance")
	require.NoError(t, err)

	valid, err := p.Sign("user_1", time.Hour)
	require.NoError(t, err)
	expired, err := p.Sign("user_1", -time.Hour)
	require.NoError(t, err)

	other, err := NewJWTProvider("another-secret-of-length", "finance")
	require.NoError(t, err)
	forged, err := other.Sign("user_1", time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewJWTProvider("0123456789abcdef0123", "elsewhere")
	require.NoError(t, err)
	foreign, err := wrongIssuer.Sign("user_1", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"valid", "Bearer " + valid, true},
		{"expired", "Bearer " + expired, false},
		{"wrong secret", "Bearer " + forged, false},
		{"wrong issuer", "Bearer " + foreign, false},
		{"garbage", "Bearer not.a.token", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			id, ok := p.UserID(r)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, "user_1", id)
			}
		})
	}

	_, err = NewJWTProvider("short", "")
	assert.Error(t, err)
}
