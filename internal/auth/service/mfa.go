package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/sessiond/internal/auth/store"
)

var (
	ErrInvalidTOTPCode   = errors.New("invalid TOTP code")
	ErrMFANotEnabled     = errors.New("MFA not enabled for this user")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this user")
)

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// ValidateTOTP checks a six digit code against secret, allowing one period
// of drift either way.
func ValidateTOTP(code, secret string, now time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, now.UTC(), totpOpts)
	return err == nil && ok
}

// TOTPEnrollment is handed to the user once; the secret is not shown again.
type TOTPEnrollment struct {
	Secret string
	URL    string // otpauth:// URI for authenticator apps
}

// MFAService manages the optional TOTP second factor checked at login.
type MFAService struct {
	Store  store.Store
	Issuer string // shown in authenticator apps
	Now    func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// EnrollTOTP generates and stores a secret for userID. From then on login
// requires a code.
func (s *MFAService) EnrollTOTP(ctx context.Context, userID string) (TOTPEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.MFASecret != nil {
		return TOTPEnrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	secret := key.Secret()
	if err := s.Store.Users().SetMFASecret(ctx, userID, &secret, s.now()); err != nil {
		return TOTPEnrollment{}, fmt.Errorf("failed to store MFA secret: %w", err)
	}
	return TOTPEnrollment{Secret: secret, URL: key.URL()}, nil
}

// DisableTOTP removes the second factor after checking a current code.
func (s *MFAService) DisableTOTP(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.MFASecret == nil {
		return ErrMFANotEnabled
	}
	if !ValidateTOTP(code, *user.MFASecret, s.now()) {
		return ErrInvalidTOTPCode
	}
	return s.Store.Users().SetMFASecret(ctx, userID, nil, s.now())
}
