// Package auth issues and verifies PASETO tokens, hashes passwords and
// generates single-use secrets.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/o1egl/paseto"
)

const footer = "pos-backoffice"

// Token purposes. A session token opens the API; a verification token only
// identifies a freshly registered admin.
const (
	PurposeSession           = "session"
	PurposeEmailVerification = "email-verification"
)

var ErrInvalidToken = errors.New("auth: invalid or expired token")

// Claims are the fields carried inside a token.
type Claims struct {
	AdminID string
	Role    string
	Purpose string
	Expires time.Time
}

// TokenMaker issues v2.local tokens with a 32 byte symmetric key.
type TokenMaker struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenMaker(key []byte, ttl time.Duration) (*TokenMaker, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("token key must be 32 bytes, got %d", len(key))
	}
	return &TokenMaker{key: key, ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of session tokens.
func (m *TokenMaker) TTL() time.Duration { return m.ttl }

// Create issues a session token for an admin.
func (m *TokenMaker) Create(adminID, role string) (string, error) {
	return m.CreateFor(adminID, role, PurposeSession, m.ttl)
}

// CreateFor issues a token for a given purpose and lifetime.
func (m *TokenMaker) CreateFor(adminID, role, purpose string, ttl time.Duration) (string, error) {
	now := m.now()
	jsonToken := paseto.JSONToken{
		Subject:    adminID,
		IssuedAt:   now,
		NotBefore:  now,
		Expiration: now.Add(ttl),
	}
	jsonToken.Set("role", role)
	jsonToken.Set("purpose", purpose)

	token, err := paseto.NewV2().Encrypt(m.key, jsonToken, footer)
	if err != nil {
		return "", fmt.Errorf("encrypt token: %w", err)
	}
	return token, nil
}

// Verify decrypts token and checks its expiry and purpose.
func (m *TokenMaker) Verify(token, purpose string) (*Claims, error) {
	var jsonToken paseto.JSONToken
	var gotFooter string
	if err := paseto.NewV2().Decrypt(token, m.key, &jsonToken, &gotFooter); err != nil {
		return nil, ErrInvalidToken
	}
	if gotFooter != footer {
		return nil, ErrInvalidToken
	}
	if err := jsonToken.Validate(paseto.ValidAt(m.now())); err != nil {
		return nil, ErrInvalidToken
	}
	if jsonToken.Get("purpose") != purpose || jsonToken.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Claims{
		AdminID: jsonToken.Subject,
		Role:    jsonToken.Get("role"),
		Purpose: purpose,
		Expires: jsonToken.Expiration,
	}, nil
}
