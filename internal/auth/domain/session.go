package domain

import "time"

// SessionStatus is the lifecycle state of a session. Revoked and Expired
// are terminal.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionRevoked SessionStatus = "revoked"
	SessionExpired SessionStatus = "expired"
)

// Reasons recorded when a session is revoked.
const (
	RevokeReasonLogout    = "logout"
	RevokeReasonLogoutAll = "logout_all"
	RevokeReasonUser      = "revoked_by_user"
	RevokeReasonReplay    = "refresh_replay"
)

// Session is a login on one device. It holds the identifiers of the token
// pair currently bound to it; refreshing swaps both for new ones.
type Session struct {
	ID     string
	UserID string

	// Nil until the first token pair is bound.
	AccessTokenJTI  *string
	RefreshTokenJTI *string

	// Raw IP and user agent are never stored; the hashes allow matching,
	// the masked IP and the user agent string are kept for display.
	IPAddressHash     string
	IPAddressMasked   string
	UserAgent         string
	UserAgentHash     string
	DeviceFingerprint string
	RiskScore         int

	IsActive      bool
	RevokedAt     *time.Time
	RevokedReason *string

	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
}

// Status derives the lifecycle state at now.
func (s *Session) Status(now time.Time) SessionStatus {
	switch {
	case !s.IsActive:
		return SessionRevoked
	case !now.Before(s.ExpiresAt):
		return SessionExpired
	default:
		return SessionActive
	}
}

// ClientMetadata is what the client tells us (or we observe) about the
// device at login or refresh.
type ClientMetadata struct {
	IPAddress         string
	UserAgent         string
	DeviceFingerprint string
	RiskScore         int
}
