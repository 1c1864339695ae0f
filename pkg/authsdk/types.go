package authsdk

import (
	"time"

	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	// Error is a stable machine readable code (e.g. "refresh_token_mismatch")
	Error string `json:"error" example:"invalid_credentials"`

	// ErrorDescription is a human readable message
	ErrorDescription string `json:"error_description" example:"invalid email or password"`

	// RequiresReauth tells the client to discard every local token and send
	// the user back to the login screen instead of retrying or refreshing.
	RequiresReauth bool `json:"requiresReauth"`
}

// ============================================================================
// Login / Refresh Types
// ============================================================================

// LoginRequest is the body of POST /auth/v2/login.
type LoginRequest struct {
	Email             string `json:"email" example:"u@example.com"`
	Password          string `json:"password" example:"pw123456"`
	OTPCode           string `json:"otpCode,omitempty" example:"123456"`
	RememberMe        bool   `json:"rememberMe,omitempty"`
	IPAddress         string `json:"ipAddress,omitempty"`
	UserAgent         string `json:"userAgent,omitempty"`
	DeviceFingerprint string `json:"deviceFingerprint,omitempty"`
}

// UserInfo is the public view of an account.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	User                  UserInfo  `json:"user"`
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	SessionID             string    `json:"sessionId"`
}

// RefreshRequest is the body of POST /auth/v2/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	IPAddress    string `json:"ipAddress,omitempty"`
	UserAgent    string `json:"userAgent,omitempty"`
}

// TokenPairResponse is returned by a successful refresh. The refresh token
// presented in the request is no longer valid.
type TokenPairResponse struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// ============================================================================
// Session Types
// ============================================================================

// LogoutRequest is the body of POST /auth/v2/logout. With neither field
// set the session of the bearer token is ended.
type LogoutRequest struct {
	SessionID         string `json:"sessionId,omitempty"`
	RevokeAllSessions bool   `json:"revokeAllSessions,omitempty"`
}

// LogoutResponse reports how many sessions were ended.
type LogoutResponse struct {
	Success         bool   `json:"success"`
	SessionsRevoked int    `json:"sessionsRevoked"`
	Message         string `json:"message"`
}

// SessionInfo describes one active session. Only the masked network of the
// client address is exposed.
type SessionInfo struct {
	ID                string    `json:"id"`
	IPAddress         string    `json:"ipAddress,omitempty" example:"203.0.113.0/24"`
	UserAgent         string    `json:"userAgent,omitempty"`
	DeviceFingerprint string    `json:"deviceFingerprint,omitempty"`
	RiskScore         int       `json:"riskScore"`
	CreatedAt         time.Time `json:"createdAt"`
	LastActivityAt    time.Time `json:"lastActivityAt"`
	ExpiresAt         time.Time `json:"expiresAt"`

	// Current marks the session of the token used for the request.
	Current bool `json:"current"`
}

// ListSessionsResponse is returned by GET /auth/v2/sessions.
type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// ============================================================================
// Token Diagnostics
// ============================================================================

// TokenInfoRequest is the body of POST /auth/v2/token/info.
type TokenInfoRequest struct {
	Token string `json:"token"`
}

// TokenInfoResponse is an unverified view of a token's header and timing
// claims. Fields are null when the token cannot be decoded.
type TokenInfoResponse jwtx.TokenInfo

// ============================================================================
// Key Types
// ============================================================================

// SigningKeyInfo describes a signing key without key material.
type SigningKeyInfo jwtx.KeyInfo

// ListKeysResponse is returned by GET /auth/v2/keys.
type ListKeysResponse struct {
	Keys []SigningKeyInfo `json:"keys"`
}

// RotateKeyResponse is returned by POST /auth/v2/keys/rotate.
type RotateKeyResponse struct {
	NewKey SigningKeyInfo   `json:"newKey"`
	Keys   []SigningKeyInfo `json:"keys"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Signer indicates whether an active signing key is loaded
	Signer string `json:"signer"`

	// Revocations is the revocation cache status, omitted when none is configured
	Revocations string `json:"revocations,omitempty"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse contains the JSON Web Key Set.
// This is returned from the GET /.well-known/jwks.json endpoint and contains
// public keys used to verify JWT signatures.
type JWKSResponse jwtx.JWKS
