package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{jwtx.ErrExpired, KindTokenExpired},
		{fmt.Errorf("verify: %w", jwtx.ErrMissingKID), KindMissingKeyID},
		{jwtx.ErrUnsupportedAlg, KindUnsupportedAlgorithm},
		{jwtx.ErrAlgMismatch, KindUnsupportedAlgorithm},
		{jwtx.ErrUnknownKID, KindUnknownSigningKey},
		{jwtx.ErrNoActiveKey, KindNoActiveKey},
		{jwtx.ErrInvalidSig, KindTokenInvalid},
		{jwtx.ErrAudience, KindTokenInvalid},
		{jwtx.ErrTokenType, KindTokenInvalid},
		{store.ErrNotFound, KindSessionNotFound},
		{context.DeadlineExceeded, KindTimeout},
		{errors.New("disk on fire"), KindInternal},
	}
	for _, tc := range cases {
		err := classify("test", tc.err)
		assert.Equal(t, tc.want, KindOf(err), tc.err.Error())
		assert.ErrorIs(t, err, tc.err)
	}

	assert.NoError(t, classify("test", nil))

	inner := newError(KindForbidden, "inner", nil)
	assert.Same(t, inner, classify("outer", inner), "already classified")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.Equal(t, KindSessionRevoked, KindOf(fmt.Errorf("wrapped: %w", newError(KindSessionRevoked, "op", nil))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindInternal))
	assert.True(t, IsKind(newError(KindForbidden, "op", nil), KindForbidden))
}

func TestOwnSessionNotFoundRequiresReauth(t *testing.T) {
	other := classify("auth.revoke_session", store.ErrNotFound)
	assert.False(t, RequiresReauth(other))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(other))

	own := classifyOwn("session.validate_refresh", store.ErrNotFound)
	assert.Equal(t, KindSessionNotFound, KindOf(own))
	assert.True(t, RequiresReauth(own))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(own))

	revoked := classifyOwn("session.validate_refresh", newError(KindSessionRevoked, "op", nil))
	assert.True(t, RequiresReauth(revoked))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(revoked))

	assert.False(t, RequiresReauth(errors.New("plain")))
}

func TestKindWireContract(t *testing.T) {
	cases := []struct {
		kind   Kind
		code   string
		status int
		reauth bool
	}{
		{KindInvalidInput, "invalid_request", http.StatusUnprocessableEntity, false},
		{KindInvalidCredentials, "invalid_credentials", http.StatusUnauthorized, false},
		{KindMFARequired, "mfa_required", http.StatusUnauthorized, false},
		{KindTokenExpired, "token_expired", http.StatusUnauthorized, false},
		{KindTokenInvalid, "invalid_token", http.StatusUnauthorized, true},
		{KindMissingKeyID, "missing_key_id", http.StatusUnauthorized, true},
		{KindUnsupportedAlgorithm, "unsupported_algorithm", http.StatusUnauthorized, true},
		{KindUnknownSigningKey, "unknown_signing_key", http.StatusUnauthorized, true},
		{KindNoActiveKey, "no_active_key", http.StatusServiceUnavailable, false},
		{KindSessionNotFound, "session_not_found", http.StatusNotFound, false},
		{KindSessionRevoked, "session_revoked", http.StatusUnauthorized, true},
		{KindSessionExpired, "session_expired", http.StatusUnauthorized, true},
		{KindRefreshTokenMismatch, "refresh_token_mismatch", http.StatusUnauthorized, true},
		{KindForbidden, "forbidden", http.StatusForbidden, false},
		{KindTimeout, "timeout", http.StatusServiceUnavailable, false},
		{KindInternal, "internal_error", http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.kind.String())
			assert.Equal(t, tc.status, tc.kind.HTTPStatus())
			assert.Equal(t, tc.reauth, tc.kind.RequiresReauth())
		})
	}
	assert.Equal(t, "internal_error", Kind(99).String())
}

func TestErrorMessage(t *testing.T) {
	err := newError(KindRefreshTokenMismatch, "auth.refresh", nil)
	assert.Equal(t, "auth.refresh: refresh_token_mismatch", err.Error())

	err = newError(KindInternal, "auth.login", errors.New("boom"))
	assert.Equal(t, "auth.login: internal_error: boom", err.Error())
}
