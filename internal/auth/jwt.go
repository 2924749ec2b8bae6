package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTProvider accepts HMAC-signed session tokens whose subject is the user id.
type JWTProvider struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTProvider verifies tokens with secret. A non-empty issuer must match
// the iss claim.
func NewJWTProvider(secret, issuer string) (*JWTProvider, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	return &JWTProvider{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}, nil
}

func (p *JWTProvider) UserID(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return "", false
	}
	sub, err := p.Verify(strings.TrimSpace(token))
	if err != nil {
		return "", false
	}
	return sub, true
}

// Verify checks the signature, expiry and issuer of token and returns its
// subject.
func (p *JWTProvider) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(p.leeway),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", errors.New("invalid token: missing subject")
	}
	return sub, nil
}

// Sign issues a token for userID valid for ttl. Used by tooling and tests.
func (p *JWTProvider) Sign(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
