package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/idx"
)

// MinPasswordLength applies to new accounts.
const MinPasswordLength = 8

var ErrEmailTaken = errors.New("email already registered")

var hasLetterAndDigit = regexp.MustCompile(`^(.*[A-Za-z].*[0-9].*|.*[0-9].*[A-Za-z].*)$`)

type NewUser struct {
	Email    string
	Name     string
	Password string
}

func (u NewUser) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Email, validation.Required, is.Email, validation.Length(3, 254)),
		validation.Field(&u.Name, validation.Length(0, 100)),
		validation.Field(&u.Password,
			validation.Required,
			validation.Length(MinPasswordLength, 128),
			validation.Match(hasLetterAndDigit).Error("must contain a letter and a digit"),
		),
	)
}

// UserService provisions accounts. Accounts are created by operators (the
// CLI), not through the login API.
type UserService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher
	Now    func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *UserService) CreateUser(ctx context.Context, in NewUser) (domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return domain.User{}, newError(KindInvalidInput, "user.create", err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return u, nil
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.Store.Users().GetUserByEmail(ctx, email)
}

// SetActive enables or disables an account. Disabling does not end live
// sessions; refresh fails for them from then on.
func (s *UserService) SetActive(ctx context.Context, userID string, active bool) error {
	return s.Store.Users().SetUserActive(ctx, userID, active, s.now())
}
