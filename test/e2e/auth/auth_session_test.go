package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
)

// TestLoginRefreshRotation logs in, rotates the refresh token and checks
// that the spent token can no longer be used.
func TestLoginRefreshRotation(t *testing.T) {
	s := setupStack(t, stackOptions{})
	s.addUser(t, "rotate@example.com")
	client := s.client()

	login, err := client.Login(t.Context(), authsdk.LoginRequest{
		Email:    "rotate@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	require.NotEmpty(t, login.SessionID)
	require.Equal(t, "rotate@example.com", login.User.Email)

	pair, err := client.Refresh(t.Context(), authsdk.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, login.AccessToken, pair.AccessToken, "access token should be rotated")
	require.NotEqual(t, login.RefreshToken, pair.RefreshToken, "refresh token should be rotated")

	_, err = client.Refresh(t.Context(), authsdk.RefreshRequest{RefreshToken: login.RefreshToken})
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeRefreshTokenMismatch, true)

	// The replay does not end the session by default.
	_, err = client.Refresh(t.Context(), authsdk.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
}

// TestLoginRejectsBadPassword checks the error contract for bad credentials.
func TestLoginRejectsBadPassword(t *testing.T) {
	s := setupStack(t, stackOptions{})
	s.addUser(t, "badpw@example.com")

	_, err := s.client().Login(t.Context(), authsdk.LoginRequest{
		Email:    "badpw@example.com",
		Password: "not-the-password1",
	})
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials, false)
}

// TestSessionLifecycle lists sessions, revokes one from another device and
// finally logs out everywhere.
func TestSessionLifecycle(t *testing.T) {
	s := setupStack(t, stackOptions{})
	s.addUser(t, "devices@example.com")
	client := s.client()

	laptop := login(t, client, "devices@example.com")
	phone := login(t, client, "devices@example.com")
	tablet := login(t, client, "devices@example.com")

	sessions, err := laptop.ListSessions(t.Context())
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	for _, info := range sessions {
		require.Equal(t, info.ID == laptop.SessionID(), info.Current)
	}

	require.NoError(t, laptop.RevokeSession(t.Context(), phone.SessionID()))

	_, err = phone.ListSessions(t.Context())
	require.ErrorIs(t, err, authsdk.ErrReauthRequired)
	require.Empty(t, phone.AccessToken(), "tokens should be dropped after reauth")

	out, err := tablet.Logout(t.Context(), true)
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Equal(t, 2, out.SessionsRevoked)

	_, err = laptop.ListSessions(t.Context())
	require.ErrorIs(t, err, authsdk.ErrReauthRequired)
}

// TestRevokeForeignSession checks that a user cannot end another user's
// session.
func TestRevokeForeignSession(t *testing.T) {
	s := setupStack(t, stackOptions{})
	s.addUser(t, "alice@example.com")
	s.addUser(t, "mallory@example.com")
	client := s.client()

	alice := login(t, client, "alice@example.com")
	mallory := login(t, client, "mallory@example.com")

	err := mallory.RevokeSession(t.Context(), alice.SessionID())
	requireAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden, false)

	_, err = alice.ListSessions(t.Context())
	require.NoError(t, err)
}
