package domain

import "time"

// TokenPair is a freshly issued access/refresh pair. It is never stored;
// only the two JTIs are persisted on the session.
type TokenPair struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenJTI        string
	RefreshTokenJTI       string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}
