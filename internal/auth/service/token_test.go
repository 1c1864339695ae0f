package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

func TestIssueTokenPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	pair, err := env.tokens.IssueTokenPair(ctx, SessionContext{
		UserID: "user-1", Email: "u@example.com", Name: "U", SessionID: "sess-1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessTokenJTI, pair.RefreshTokenJTI)
	assert.True(t, pair.AccessTokenExpiresAt.Equal(now.Add(15*time.Minute)))
	assert.True(t, pair.RefreshTokenExpiresAt.Equal(now.Add(7*24*time.Hour)))
	assert.True(t, pair.AccessTokenExpiresAt.Before(pair.RefreshTokenExpiresAt))

	signer, err := env.keys.ActiveSigner()
	require.NoError(t, err)
	info := env.tokens.TokenInfo(pair.AccessToken)
	require.NotNil(t, info.KeyID)
	assert.Equal(t, signer.KID(), *info.KeyID)
	require.NotNil(t, info.Type)
	assert.Equal(t, jwtx.TokenTypeAccess, *info.Type)

	access, err := env.tokens.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", access.UserID)
	assert.Equal(t, "u@example.com", access.Email)
	assert.Equal(t, "sess-1", access.SessionID)
	assert.Equal(t, pair.AccessTokenJTI, access.ID)

	refresh, err := env.tokens.VerifyRefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refresh.Email, "refresh tokens carry no profile data")
	assert.Equal(t, pair.RefreshTokenJTI, refresh.ID)
}

func TestIssueTokenPairClampsRefreshToSession(t *testing.T) {
	env := newTestEnv(t)
	sessionEnd := env.clock.Now().Add(2 * time.Hour)

	pair, err := env.tokens.IssueTokenPair(context.Background(), SessionContext{
		UserID: "user-1", SessionID: "sess-1", SessionExpiresAt: sessionEnd,
	})
	require.NoError(t, err)
	assert.True(t, pair.RefreshTokenExpiresAt.Equal(sessionEnd))
}

func TestIssueTokenPairWithoutActiveKey(t *testing.T) {
	km, err := jwtx.NewKeyManager(jwtx.KeyOptions{RSABits: 2048})
	require.NoError(t, err)
	svc := &TokenService{Keys: km, AccessTTL: time.Minute, RefreshTTL: time.Hour}

	_, err = svc.IssueTokenPair(context.Background(), SessionContext{UserID: "u", SessionID: "s"})
	require.Error(t, err)
	assert.Equal(t, KindNoActiveKey, KindOf(err))
}

func TestVerifyRejectsTypeConfusion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pair, err := env.tokens.IssueTokenPair(ctx, SessionContext{UserID: "u", SessionID: "s"})
	require.NoError(t, err)

	_, err = env.tokens.VerifyAccessToken(ctx, pair.RefreshToken)
	assert.Equal(t, KindTokenInvalid, KindOf(err))

	_, err = env.tokens.VerifyRefreshToken(ctx, pair.AccessToken)
	assert.Equal(t, KindTokenInvalid, KindOf(err))
}

func TestVerifyExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pair, err := env.tokens.IssueTokenPair(ctx, SessionContext{UserID: "u", SessionID: "s"})
	require.NoError(t, err)

	// Within the default 60s skew.
	env.clock.Advance(15*time.Minute + 30*time.Second)
	_, err = env.tokens.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	_, err = env.tokens.VerifyAccessToken(ctx, pair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, KindTokenExpired, KindOf(err))
	assert.False(t, KindOf(err).RequiresReauth())
}

func TestVerifyUnknownSigningKeyRequiresReauth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pemKey, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)
	foreign, err := jwtx.NewSigner(jwtx.AlgorithmRS256, "sk-foreign", pemKey)
	require.NoError(t, err)

	claims := jwtx.NewAccessClaims(jwtx.Subject{UserID: "u", SessionID: "s"}, env.tokens.Issuer, env.tokens.Audience, time.Minute, env.clock.Now())
	token, err := foreign.Sign(claims)
	require.NoError(t, err)

	_, err = env.tokens.VerifyAccessToken(ctx, token)
	require.Error(t, err)
	kind := KindOf(err)
	assert.Equal(t, KindUnknownSigningKey, kind)
	assert.True(t, kind.RequiresReauth())
	assert.Equal(t, http.StatusUnauthorized, kind.HTTPStatus())
}

func TestVerifyAfterRotation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rotation := &KeyRotationService{Keys: env.keys, Audit: env.sink, Metrics: env.metrics}

	before, err := env.tokens.IssueTokenPair(ctx, SessionContext{UserID: "u", SessionID: "s"})
	require.NoError(t, err)

	resp, err := rotation.RotateKey(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Keys, 2)
	assert.True(t, resp.Keys[0].Active)
	assert.False(t, resp.Keys[1].Active)
	assert.Contains(t, env.sink.types(), "key.rotated")

	after, err := env.tokens.IssueTokenPair(ctx, SessionContext{UserID: "u", SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, resp.NewKey.KID, *env.tokens.TokenInfo(after.AccessToken).KeyID)

	// The demoted key keeps verifying during the overlap window.
	_, err = env.tokens.VerifyRefreshToken(ctx, before.RefreshToken)
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	purged, err := rotation.PurgeRetiredKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, purged, 1)

	_, err = env.tokens.VerifyRefreshToken(ctx, before.RefreshToken)
	assert.Equal(t, KindUnknownSigningKey, KindOf(err))
	_, err = env.tokens.VerifyRefreshToken(ctx, after.RefreshToken)
	require.NoError(t, err)
}

func TestVerifyHeaderFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.tokens.VerifyAccessToken(ctx, "not-a-token")
	assert.Equal(t, KindTokenInvalid, KindOf(err))

	// {"alg":"HS256","kid":"x"}.{}.sig
	_, err = env.tokens.VerifyAccessToken(ctx, "eyJhbGciOiJIUzI1NiIsImtpZCI6IngifQ.e30.c2ln")
	assert.Equal(t, KindUnsupportedAlgorithm, KindOf(err))

	// {"alg":"RS256"}.{}.sig
	_, err = env.tokens.VerifyAccessToken(ctx, "eyJhbGciOiJSUzI1NiJ9.e30.c2ln")
	assert.Equal(t, KindMissingKeyID, KindOf(err))
}

func TestTokenInfoNeverFails(t *testing.T) {
	env := newTestEnv(t)
	info := env.tokens.TokenInfo("garbage")
	assert.Nil(t, info.Algorithm)
	assert.Nil(t, info.KeyID)
	assert.Nil(t, info.Type)
	assert.Nil(t, info.IssuedAt)
	assert.Nil(t, info.ExpiresAt)
}

func TestRevocationWindowCoversLeeway(t *testing.T) {
	ts := &TokenService{AccessTTL: 15 * time.Minute}
	assert.Equal(t, jwtx.DefaultLeeway, ts.Leeway())
	assert.Equal(t, 16*time.Minute, ts.RevocationWindow())

	ts.ClockSkew = 5 * time.Second
	assert.Equal(t, 15*time.Minute+5*time.Second, ts.RevocationWindow())
}
