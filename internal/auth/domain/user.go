package domain

import "time"

// User is the account a session belongs to. Accounts are provisioned
// outside the login flow.
type User struct {
	ID           string
	Email        string // stored lower-cased
	Name         string
	PasswordHash string  // argon2id PHC string
	MFASecret    *string // base32 TOTP secret, nil when MFA is off
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
