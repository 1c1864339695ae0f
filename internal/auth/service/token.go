package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

// SessionContext is what a token pair is minted for.
type SessionContext struct {
	UserID    string
	Email     string
	Name      string
	SessionID string

	// SessionExpiresAt caps the refresh token lifetime. Zero means no cap.
	SessionExpiresAt time.Time
}

// TokenService issues and verifies token pairs using an injected
// KeyManager.
type TokenService struct {
	Keys       *jwtx.KeyManager
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ClockSkew  time.Duration // zero uses jwtx.DefaultLeeway
	Now        func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// IssueTokenPair signs an access and a refresh token with the active key.
// It fails with KindNoActiveKey rather than fall back to anything else.
func (s *TokenService) IssueTokenPair(_ context.Context, sc SessionContext) (domain.TokenPair, error) {
	const op = "token.issue"

	signer, err := s.Keys.ActiveSigner()
	if err != nil {
		return domain.TokenPair{}, classify(op, err)
	}

	now := s.now()
	refreshExp := now.Add(s.RefreshTTL)
	if !sc.SessionExpiresAt.IsZero() && sc.SessionExpiresAt.Before(refreshExp) {
		refreshExp = sc.SessionExpiresAt
	}

	sub := jwtx.Subject{UserID: sc.UserID, Email: sc.Email, Name: sc.Name, SessionID: sc.SessionID}
	access := jwtx.NewAccessClaims(sub, s.Issuer, s.Audience, s.AccessTTL, now)
	refresh := jwtx.NewRefreshClaims(sub, s.Issuer, s.Audience, refreshExp, now)

	accessToken, err := signer.Sign(access)
	if err != nil {
		return domain.TokenPair{}, newError(KindInternal, op, fmt.Errorf("sign access token: %w", err))
	}
	refreshToken, err := signer.Sign(refresh)
	if err != nil {
		return domain.TokenPair{}, newError(KindInternal, op, fmt.Errorf("sign refresh token: %w", err))
	}

	return domain.TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenJTI:        access.ID,
		RefreshTokenJTI:       refresh.ID,
		AccessTokenExpiresAt:  access.ExpiresAt.Time,
		RefreshTokenExpiresAt: refresh.ExpiresAt.Time,
	}, nil
}

// VerifyAccessToken verifies an access token. A refresh token is rejected.
func (s *TokenService) VerifyAccessToken(ctx context.Context, token string) (*jwtx.Claims, error) {
	claims, err := s.verify(ctx, token, jwtx.TokenTypeAccess)
	return claims, classify("token.verify_access", err)
}

// VerifyRefreshToken verifies a refresh token. An access token is rejected.
func (s *TokenService) VerifyRefreshToken(ctx context.Context, token string) (*jwtx.Claims, error) {
	claims, err := s.verify(ctx, token, jwtx.TokenTypeRefresh)
	return claims, classify("token.verify_refresh", err)
}

// Leeway is the clock skew tolerated on exp and iat.
func (s *TokenService) Leeway() time.Duration {
	if s.ClockSkew == 0 {
		return jwtx.DefaultLeeway
	}
	return s.ClockSkew
}

// RevocationWindow is how long an access token of a revoked session can
// still pass verification: its lifetime plus the leeway.
func (s *TokenService) RevocationWindow() time.Duration {
	return s.AccessTTL + s.Leeway()
}

func (s *TokenService) verify(ctx context.Context, token string, want jwtx.TokenType) (*jwtx.Claims, error) {
	v := jwtx.NewVerifier(resolverFunc(func(kid string) (jwtx.VerificationKey, error) {
		return s.Keys.ResolveKey(ctx, kid)
	}), jwtx.VerifyOptions{
		Issuer:   s.Issuer,
		Audience: s.Audience,
		Leeway:   s.Leeway(),
		Now:      s.now,
	})
	return v.Verify(token, want)
}

// TokenInfo decodes a token for diagnostics without verifying it.
func (s *TokenService) TokenInfo(token string) jwtx.TokenInfo {
	return jwtx.Inspect(token)
}

type resolverFunc func(kid string) (jwtx.VerificationKey, error)

func (f resolverFunc) VerificationKey(kid string) (jwtx.VerificationKey, error) { return f(kid) }
