package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenType distinguishes access tokens from refresh tokens. Verification
// always checks it so one kind cannot stand in for the other.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the payload shared by access and refresh tokens. Refresh tokens
// leave Email and Name empty.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	SessionID string    `json:"sessionId"`
	Type      TokenType `json:"type"`
}

// Subject identifies the principal and session a token pair is minted for.
type Subject struct {
	UserID    string
	Email     string
	Name      string
	SessionID string
}

// NewAccessClaims builds access-token claims.
func NewAccessClaims(sub Subject, issuer string, audience []string, ttl time.Duration, now time.Time) Claims {
	c := newClaims(sub, TokenTypeAccess, issuer, audience, now, now.Add(ttl))
	c.Email = sub.Email
	c.Name = sub.Name
	return c
}

// NewRefreshClaims builds refresh-token claims expiring at expiresAt.
func NewRefreshClaims(sub Subject, issuer string, audience []string, expiresAt, now time.Time) Claims {
	return newClaims(sub, TokenTypeRefresh, issuer, audience, now, expiresAt)
}

func newClaims(sub Subject, typ TokenType, issuer string, audience []string, now, exp time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sub.UserID,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        NewJTI(),
		},
		UserID:    sub.UserID,
		SessionID: sub.SessionID,
		Type:      typ,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks the issuer when one is expected.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" || c.Issuer == expected {
		return nil
	}
	return ErrIssuer
}

// ValidateAudience checks that at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateShape checks the custom claims every token must carry.
func (c *Claims) ValidateShape(want TokenType) error {
	if c.Type != want {
		return ErrTokenType
	}
	if c.UserID == "" || c.SessionID == "" || c.ID == "" {
		return ErrInvalidClaim
	}
	return nil
}
