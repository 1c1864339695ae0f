package domain

import "time"

// SigningKey is a JWT signing key row. The private key is AES-256-GCM
// encrypted. A key with RetiredAt == nil is the active key; retired keys
// remain usable for verification until PurgeAt.
type SigningKey struct {
	ID                  string
	KID                 string
	Algorithm           string // RS256 or PS256
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
	PurgeAt             *time.Time
}

// IsActive reports whether the key signs new tokens.
func (k *SigningKey) IsActive() bool {
	return k.RetiredAt == nil
}

// IsPurgeable reports whether the key has left its overlap window.
func (k *SigningKey) IsPurgeable(now time.Time) bool {
	return k.PurgeAt != nil && !now.Before(*k.PurgeAt)
}
