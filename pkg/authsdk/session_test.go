package authsdk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
)

// fakeServer hands out numbered tokens and answers refreshes of anything
// but the latest refresh token with requiresReauth.
type fakeServer struct {
	n         atomic.Int32
	latest    atomic.Value
	accessTTL time.Duration
	loggedOut atomic.Bool
}

func (f *fakeServer) pair() authsdk.TokenPairResponse {
	n := f.n.Add(1)
	refresh := "refresh-" + string(rune('0'+n))
	f.latest.Store(refresh)
	now := time.Now()
	return authsdk.TokenPairResponse{
		AccessToken:           "access-" + string(rune('0'+n)),
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  now.Add(f.accessTTL),
		RefreshTokenExpiresAt: now.Add(time.Hour),
	}
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v2/login", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "pw123456" {
			authsdk.NewAPIError(http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials, "invalid email or password", false).WriteError(w)
			return
		}
		p := f.pair()
		writeJSON(w, authsdk.LoginResponse{
			User:                  authsdk.UserInfo{ID: "user-1", Email: req.Email},
			AccessToken:           p.AccessToken,
			RefreshToken:          p.RefreshToken,
			AccessTokenExpiresAt:  p.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: p.RefreshTokenExpiresAt,
			SessionID:             "sess-1",
		})
	})
	mux.HandleFunc("POST /auth/v2/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.RefreshToken != f.latest.Load() {
			authsdk.NewAPIError(http.StatusUnauthorized, authsdk.ErrorCodeRefreshTokenMismatch, "refresh token already used", true).WriteError(w)
			return
		}
		writeJSON(w, f.pair())
	})
	mux.HandleFunc("GET /auth/v2/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, authsdk.ListSessionsResponse{Sessions: []authsdk.SessionInfo{
			{ID: "sess-1", Current: true, IPAddress: r.Header.Get("Authorization")},
		}})
	})
	mux.HandleFunc("DELETE /auth/v2/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		authsdk.NewAPIError(http.StatusNotFound, authsdk.ErrorCodeSessionNotFound, "session not found", false).WriteError(w)
	})
	mux.HandleFunc("POST /auth/v2/logout", func(w http.ResponseWriter, r *http.Request) {
		f.loggedOut.Store(true)
		writeJSON(w, authsdk.LogoutResponse{Success: true, SessionsRevoked: 1, Message: "logged out"})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestSessionRefreshesExpiredAccessToken(t *testing.T) {
	// Tokens expire inside the refresh buffer, so every call refreshes.
	f := &fakeServer{accessTTL: time.Second}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	client := authsdk.NewSDKClient(srv.URL)
	ctx := context.Background()

	session, err := client.AuthenticateWithPassword(ctx, authsdk.LoginRequest{Email: "u@example.com", Password: "pw123456"})
	require.NoError(t, err)
	require.Equal(t, "sess-1", session.SessionID())
	require.Equal(t, "refresh-1", session.RefreshToken())

	sessions, err := session.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "Bearer access-2", sessions[0].IPAddress)
	require.Equal(t, "refresh-2", session.RefreshToken())
}

func TestSessionDropsTokensOnReauth(t *testing.T) {
	f := &fakeServer{accessTTL: time.Second}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	client := authsdk.NewSDKClient(srv.URL)
	ctx := context.Background()

	session, err := client.AuthenticateWithPassword(ctx, authsdk.LoginRequest{Email: "u@example.com", Password: "pw123456"})
	require.NoError(t, err)

	// Someone else spends the refresh token first.
	_, err = client.Refresh(ctx, authsdk.RefreshRequest{RefreshToken: session.RefreshToken()})
	require.NoError(t, err)

	_, err = session.ListSessions(ctx)
	require.ErrorIs(t, err, authsdk.ErrReauthRequired)
	require.True(t, authsdk.RequiresReauth(err))
	require.Empty(t, session.AccessToken())
	require.Empty(t, session.RefreshToken())

	_, err = session.ListSessions(ctx)
	require.ErrorIs(t, err, authsdk.ErrReauthRequired)
}

func TestRevokeUnknownSessionKeepsTokens(t *testing.T) {
	f := &fakeServer{accessTTL: time.Hour}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	client := authsdk.NewSDKClient(srv.URL)
	ctx := context.Background()

	session, err := client.AuthenticateWithPassword(ctx, authsdk.LoginRequest{Email: "u@example.com", Password: "pw123456"})
	require.NoError(t, err)

	err = session.RevokeSession(ctx, "does-not-exist")
	require.Error(t, err)
	require.False(t, authsdk.RequiresReauth(err))
	require.NotErrorIs(t, err, authsdk.ErrReauthRequired)
	require.Equal(t, "access-1", session.AccessToken())
	require.Equal(t, "refresh-1", session.RefreshToken())

	_, err = session.ListSessions(ctx)
	require.NoError(t, err)
}

func TestLoginError(t *testing.T) {
	f := &fakeServer{accessTTL: time.Hour}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	_, err := authsdk.NewSDKClient(srv.URL).Login(context.Background(), authsdk.LoginRequest{Email: "u@example.com", Password: "nope"})
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInvalidCredentials, apiErr.Code)
	require.False(t, authsdk.RequiresReauth(err))
}

func TestLogoutClearsLocalTokensEvenOnFailure(t *testing.T) {
	f := &fakeServer{accessTTL: time.Hour}
	srv := httptest.NewServer(f.handler(t))

	client := authsdk.NewSDKClient(srv.URL)
	ctx := context.Background()
	session, err := client.AuthenticateWithPassword(ctx, authsdk.LoginRequest{Email: "u@example.com", Password: "pw123456"})
	require.NoError(t, err)

	out, err := session.Logout(ctx, false)
	require.NoError(t, err)
	require.True(t, out.Success)
	require.True(t, f.loggedOut.Load())
	require.Empty(t, session.AccessToken())

	session = client.NewSessionFromTokens("sess-2", "access", "refresh", time.Now().Add(time.Hour))
	srv.Close()
	_, err = session.Logout(ctx, true)
	require.Error(t, err)
	require.Empty(t, session.AccessToken())
	require.Empty(t, session.RefreshToken())
}
