package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the session authentication service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// AdminToken is sent as X-Admin-Token on key management calls.
	AdminToken string
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges credentials for a token pair and a new server session.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/v2/login", req, nil)
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new pair. The presented refresh
// token is spent whether or not the caller receives the response.
func (c *SDKClient) Refresh(ctx context.Context, req RefreshRequest) (*TokenPairResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/v2/refresh", req, nil)
	if err != nil {
		return nil, err
	}

	var out TokenPairResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// TokenInfo asks the service to decode a token without verifying it.
func (c *SDKClient) TokenInfo(ctx context.Context, token string) (*TokenInfoResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/v2/token/info", TokenInfoRequest{Token: token}, nil)
	if err != nil {
		return nil, err
	}

	var out TokenInfoResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateWithPassword logs in and wraps the result in a Session that
// refreshes itself.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, req LoginRequest) (*Session, error) {
	out, err := c.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.NewSessionFromTokens(out.SessionID, out.AccessToken, out.RefreshToken, out.AccessTokenExpiresAt), nil
}

// NewSessionFromTokens creates an authenticated session from existing tokens.
// This is useful when you already have tokens from a previous authentication.
// The session will still refresh when the access token expires.
func (c *SDKClient) NewSessionFromTokens(sessionID, accessToken, refreshToken string, accessExpiresAt time.Time) *Session {
	return &Session{
		client:       c,
		sessionID:    sessionID,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    accessExpiresAt.Add(-refreshBuffer),
	}
}
