package jwtx_test

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newVerifier(km *jwtx.KeyManager, clock *fakeClock) *jwtx.Verifier {
	return jwtx.NewVerifier(km, jwtx.VerifyOptions{
		Issuer:   testIssuer,
		Audience: testAudience,
		Now:      clock.Now,
	})
}

func signActive(t *testing.T, km *jwtx.KeyManager, claims jwtx.Claims) string {
	t.Helper()
	s, err := km.ActiveSigner()
	require.NoError(t, err)
	token, err := s.Sign(claims)
	require.NoError(t, err)
	return token
}

func TestVerifyAccessAndRefresh(t *testing.T) {
	clock := newClock()
	km := newKeyManager(t, clock)
	v := newVerifier(km, clock)

	access := signActive(t, km, jwtx.NewAccessClaims(testSubject(), testIssuer, testAudience, 15*time.Minute, clock.Now()))
	refresh := signActive(t, km, jwtx.NewRefreshClaims(testSubject(), testIssuer, testAudience, clock.Now().Add(24*time.Hour), clock.Now()))

	claims, err := v.Verify(access, jwtx.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "u@example.com", claims.Email)
	require.Equal(t, "sess-1", claims.SessionID)

	claims, err = v.Verify(refresh, jwtx.TokenTypeRefresh)
	require.NoError(t, err)
	require.Empty(t, claims.Email)
	require.Equal(t, jwtx.TokenTypeRefresh, claims.Type)
}

func TestVerifyRejectsTypeConfusion(t *testing.T) {
	clock := newClock()
	km := newKeyManager(t, clock)
	v := newVerifier(km, clock)

	access := signActive(t, km, jwtx.NewAccessClaims(testSubject(), testIssuer, testAudience, 15*time.Minute, clock.Now()))
	refresh := signActive(t, km, jwtx.NewRefreshClaims(testSubject(), testIssuer, testAudience, clock.Now().Add(time.Hour), clock.Now()))

	_, err := v.Verify(refresh, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, jwtx.ErrTokenType)

	_, err = v.Verify(access, jwtx.TokenTypeRefresh)
	require.ErrorIs(t, err, jwtx.ErrTokenType)
}

func TestVerifyExpiryWithLeeway(t *testing.T) {
	clock := newClock()
	km := newKeyManager(t, clock)
	v := newVerifier(km, clock)

	token := signActive(t, km, jwtx.NewAccessClaims(testSubject(), testIssuer, testAudience, time.Minute, clock.Now()))

	clock.Advance(time.Minute + 30*time.Second)
	_, err := v.Verify(token, jwtx.TokenTypeAccess)
	require.NoError(t, err, "inside the default 60s leeway")

	clock.Advance(time.Minute)
	_, err = v.Verify(token, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyHeaderFailures(t *testing.T) {
	clock := newClock()
	km := newKeyManager(t, clock)
	v := newVerifier(km, clock)
	claims := jwtx.NewAccessClaims(testSubject(), testIssuer, testAudience, time.Minute, clock.Now())
	active, err := km.ActiveSigner()
	require.NoError(t, err)

	t.Run("malformed", func(t *testing.T) {
		_, err := v.Verify("not.a.jwt", jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("missing kid", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		raw, err := tok.SigningString()
		require.NoError(t, err)
		_, err = v.Verify(raw+".sig", jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrMissingKID)
	})

	t.Run("symmetric algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		tok.Header["kid"] = active.KID()
		raw, err := tok.SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Verify(raw, jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrUnsupportedAlg)
	})

	t.Run("alg none", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
		tok.Header["kid"] = active.KID()
		raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Verify(raw, jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrUnsupportedAlg)
	})

	t.Run("unregistered algorithm", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"XYZ","kid":"` + active.KID() + `"}`))
		payload := base64.RawURLEncoding.EncodeToString([]byte(`{"userId":"u"}`))
		_, err := v.Verify(header+"."+payload+".c2ln", jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrUnsupportedAlg)
	})

	t.Run("unknown kid", func(t *testing.T) {
		foreign := newSigner(t, jwtx.AlgorithmRS256, "foreign-kid")
		raw, err := foreign.Sign(claims)
		require.NoError(t, err)
		_, err = v.Verify(raw, jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("alg swapped to PS256", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodPS256, claims)
		tok.Header["kid"] = active.KID()
		raw, err := tok.SigningString()
		require.NoError(t, err)
		_, err = v.Verify(raw+".c2ln", jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
	})

	t.Run("forged signature", func(t *testing.T) {
		impostor := newSigner(t, jwtx.AlgorithmRS256, active.KID())
		raw, err := impostor.Sign(claims)
		require.NoError(t, err)
		_, err = v.Verify(raw, jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})
}

func TestVerifyIssuerAndAudience(t *testing.T) {
	clock := newClock()
	km := newKeyManager(t, clock)
	v := newVerifier(km, clock)

	wrongIss := signActive(t, km, jwtx.NewAccessClaims(testSubject(), "someone-else", testAudience, time.Minute, clock.Now()))
	_, err := v.Verify(wrongIss, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, jwtx.ErrIssuer)

	wrongAud := signActive(t, km, jwtx.NewAccessClaims(testSubject(), testIssuer, []string{"billing"}, time.Minute, clock.Now()))
	_, err = v.Verify(wrongAud, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, jwtx.ErrAudience)
}

func TestVerifyRetiredKeyUntilPurged(t *testing.T) {
	clock := newClock()
	km := newKeyManager(t, clock)
	v := newVerifier(km, clock)

	token := signActive(t, km, jwtx.NewRefreshClaims(testSubject(), testIssuer, testAudience, clock.Now().Add(48*time.Hour), clock.Now()))

	_, err := km.Rotate(t.Context())
	require.NoError(t, err)
	_, err = v.Verify(token, jwtx.TokenTypeRefresh)
	require.NoError(t, err, "retired keys verify during the overlap window")

	clock.Advance(2 * time.Hour)
	_, err = km.Purge(t.Context())
	require.NoError(t, err)
	_, err = v.Verify(token, jwtx.TokenTypeRefresh)
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
}

func TestVerifyRejectsMissingSessionID(t *testing.T) {
	clock := newClock()
	km := newKeyManager(t, clock)
	v := newVerifier(km, clock)

	sub := testSubject()
	sub.SessionID = ""
	token := signActive(t, km, jwtx.NewAccessClaims(sub, testIssuer, testAudience, time.Minute, clock.Now()))
	_, err := v.Verify(token, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
}

type failingResolver struct{ err error }

func (r failingResolver) VerificationKey(string) (jwtx.VerificationKey, error) {
	return jwtx.VerificationKey{}, r.err
}

func TestVerifyPropagatesResolverFailure(t *testing.T) {
	clock := newClock()
	km := newKeyManager(t, clock)
	token := signActive(t, km, jwtx.NewAccessClaims(testSubject(), testIssuer, testAudience, time.Minute, clock.Now()))

	down := errors.New("database unavailable")
	v := jwtx.NewVerifier(failingResolver{err: down}, jwtx.VerifyOptions{Issuer: testIssuer, Audience: testAudience, Now: clock.Now})
	_, err := v.Verify(token, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, down)
	require.NotErrorIs(t, err, jwtx.ErrUnknownKID)
}
