// Package auth supplies the bearer token sent to the backend REST API.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoCredentials = errors.New("no backend credentials configured")

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type staticToken string

// Static returns a source that always hands out token, typically an operator
// session token copied from the dashboard.
func Static(token string) TokenSource {
	return staticToken(token)
}

func (s staticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoCredentials
	}
	return string(s), nil
}

type claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Minted signs short-lived HS256 service tokens for userID and caches each one
// until it is within refreshBefore of expiry.
type Minted struct {
	secret        []byte
	userID        string
	ttl           time.Duration
	refreshBefore time.Duration
	now           func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewMinted(secret, userID string, ttl time.Duration) *Minted {
	return &Minted{
		secret:        []byte(secret),
		userID:        userID,
		ttl:           ttl,
		refreshBefore: ttl / 5,
		now:           time.Now,
	}
}

func (m *Minted) Token(context.Context) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrNoCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.token != "" && now.Before(m.expires.Add(-m.refreshBefore)) {
		return m.token, nil
	}

	expires := now.Add(m.ttl)
	c := &claims{
		UserID: m.userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   m.userID,
			Issuer:    "dispatch-board",
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", err
	}

	m.token = signed
	m.expires = expires
	return signed, nil
}

// Parse validates a token minted with secret and returns its user id.
func Parse(secret, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	if c, ok := parsed.Claims.(*claims); ok && parsed.Valid {
		return c.UserID, nil
	}
	return "", jwt.ErrTokenInvalidClaims
}
