// Package revocation tracks sessions revoked before their access tokens
// expire. Entries only need to outlive the access token TTL.
package revocation

import (
	"context"
	"time"
)

// Cache records revoked session ids.
type Cache interface {
	// Revoke marks sessionID as revoked for ttl.
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error

	// IsRevoked reports whether sessionID was revoked and the entry has not
	// lapsed.
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}
