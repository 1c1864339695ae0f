package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is a diagnostic view of a token header and timing claims. It is
// produced without verifying the signature and must not be used for
// authorization decisions.
type TokenInfo struct {
	Algorithm *string    `json:"algorithm"`
	KeyID     *string    `json:"keyId"`
	Type      *TokenType `json:"type"`
	IssuedAt  *time.Time `json:"issuedAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Inspect decodes a token without verifying it. Every field is nil when
// the token cannot be decoded; it never fails.
func Inspect(tokenStr string) TokenInfo {
	claims := &Claims{}
	token, _, _ := jwt.NewParser().ParseUnverified(tokenStr, claims)
	if token == nil || token.Header == nil {
		return TokenInfo{}
	}

	var info TokenInfo
	if alg, ok := token.Header["alg"].(string); ok && alg != "" {
		info.Algorithm = &alg
	}
	if kid, ok := token.Header["kid"].(string); ok && kid != "" {
		info.KeyID = &kid
	}
	if claims.Type != "" {
		typ := claims.Type
		info.Type = &typ
	}
	if claims.IssuedAt != nil {
		iat := claims.IssuedAt.UTC()
		info.IssuedAt = &iat
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.UTC()
		info.ExpiresAt = &exp
	}
	return info
}
