package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// refreshBuffer refreshes the access token slightly before it expires.
const refreshBuffer = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
// Once the server answers with requiresReauth the tokens are dropped and
// every call fails with ErrReauthRequired.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	sessionID    string
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// SessionID returns the server-side session id.
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// clear drops local tokens.
func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken = "", ""
	s.expiresAt = time.Time{}
}

// check clears the session when err demands a new login.
func (s *Session) check(err error) error {
	if err != nil && RequiresReauth(err) {
		s.clear()
		if !errors.Is(err, ErrReauthRequired) {
			return fmt.Errorf("%w: %w", ErrReauthRequired, err)
		}
	}
	return err
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.accessToken != "" && time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if s.accessToken != "" && time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", ErrReauthRequired
	}

	pair, err := s.client.Refresh(ctx, RefreshRequest{RefreshToken: s.refreshToken})
	if err != nil {
		if RequiresReauth(err) {
			s.accessToken, s.refreshToken = "", ""
			return "", fmt.Errorf("%w: %w", ErrReauthRequired, err)
		}
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	s.expiresAt = pair.AccessTokenExpiresAt.Add(-refreshBuffer)

	return s.accessToken, nil
}

// doAuthRequest performs an authenticated HTTP request using the session's access token.
func (s *Session) doAuthRequest(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.doRequest(ctx, method, path, payload, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// ListSessions returns the caller's active sessions.
func (s *Session) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/auth/v2/sessions", nil)
	if err != nil {
		return nil, err
	}

	var out ListSessionsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, s.check(err)
	}
	return out.Sessions, nil
}

// RevokeSession ends another session of the same user.
func (s *Session) RevokeSession(ctx context.Context, sessionID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/auth/v2/sessions/"+sessionID, nil)
	if err != nil {
		return err
	}
	return s.check(checkStatusNoContent(resp))
}

// Logout ends this session, or every session of the user when all is set.
// Local tokens are dropped even when the server cannot be reached, so a
// backend outage never leaves the caller logged in.
func (s *Session) Logout(ctx context.Context, all bool) (*LogoutResponse, error) {
	defer s.clear()

	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/auth/v2/logout", LogoutRequest{RevokeAllSessions: all})
	if err != nil {
		return nil, err
	}

	var out LogoutResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
