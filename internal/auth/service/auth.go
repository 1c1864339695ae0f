package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/audit"
	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/internal/auth/metrics"
	"github.com/aussiebroadwan/sessiond/internal/auth/revocation"
	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// Principal is the caller behind a verified access token.
type Principal struct {
	UserID    string
	Email     string
	Name      string
	SessionID string
	TokenID   string
	ExpiresAt time.Time
}

type LoginRequest struct {
	Email      string
	Password   string
	OTPCode    string
	RememberMe bool
	Client     domain.ClientMetadata
}

type LoginResult struct {
	User    domain.User
	Session domain.Session
	Tokens  domain.TokenPair
}

type RefreshRequest struct {
	RefreshToken string
	Client       domain.ClientMetadata
}

type LogoutRequest struct {
	SessionID string // empty means the caller's session
	RevokeAll bool
}

type LogoutResult struct {
	SessionsRevoked int
}

// AuthService runs the login, refresh and logout flows on top of
// TokenService and SessionManager.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	Sessions *SessionManager
	Hasher   *cryptox.PasswordHasher
	Audit    audit.Sink

	// Revocations is consulted by Authenticate. Optional.
	Revocations revocation.Cache

	// RevokeOnReplay ends the whole session when a stale refresh token is
	// presented, instead of only rejecting the request.
	RevokeOnReplay bool

	Metrics *metrics.Metrics

	dummyOnce sync.Once
	dummyHash string
}

func (s *AuthService) audit(ctx context.Context, e audit.Event) {
	if s.Audit != nil {
		s.Audit.Record(ctx, e)
	}
}

// Login checks credentials, opens a session and returns its first token
// pair. Every credential problem is reported as KindInvalidCredentials so
// callers cannot tell which part was wrong.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	res, err := s.login(ctx, req)
	if s.Metrics != nil {
		s.Metrics.Logins.WithLabelValues(metrics.Result(err)).Inc()
	}
	return res, err
}

func (s *AuthService) login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	const op = "auth.login"
	l := slogx.FromContext(ctx)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return LoginResult{}, newError(KindInvalidInput, op, errors.New("email and password are required"))
	}

	fail := func(reason string, err error) (LoginResult, error) {
		l.Info("login rejected", slog.String("reason", reason))
		s.audit(ctx, audit.Event{
			Type:     audit.EventLoginFailed,
			Severity: domain.SeverityWarning,
			Result:   domain.ResultFailure,
			Metadata: map[string]any{"reason": reason, "ip": MaskIP(req.Client.IPAddress)},
		})
		if err == nil {
			err = errors.New(reason)
		}
		return LoginResult{}, newError(KindInvalidCredentials, op, err)
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// Spend the same time as a real check.
		_ = s.Hasher.Verify(req.Password, s.dummy())
		return fail("unknown_email", nil)
	}
	if err != nil {
		return LoginResult{}, classify(op, err)
	}

	if err := s.Hasher.Verify(req.Password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return fail("bad_password", nil)
		}
		return LoginResult{}, newError(KindInternal, op, err)
	}
	if !user.IsActive {
		return fail("inactive_account", nil)
	}

	if user.MFASecret != nil {
		if strings.TrimSpace(req.OTPCode) == "" {
			return LoginResult{}, newError(KindMFARequired, op, nil)
		}
		if !ValidateTOTP(req.OTPCode, *user.MFASecret, s.Sessions.now()) {
			return fail("bad_otp", nil)
		}
	}

	sess, err := s.Sessions.CreateSession(ctx, user.ID, req.Client, req.RememberMe)
	if err != nil {
		return LoginResult{}, err
	}

	pair, err := s.Tokens.IssueTokenPair(ctx, SessionContext{
		UserID:           user.ID,
		Email:            user.Email,
		Name:             user.Name,
		SessionID:        sess.ID,
		SessionExpiresAt: sess.ExpiresAt,
	})
	if err == nil {
		err = s.Sessions.BindTokenIdentifiers(ctx, sess.ID, pair.AccessTokenJTI, pair.RefreshTokenJTI)
	}
	if err != nil {
		// Do not leave an orphaned session behind.
		if _, rerr := s.Sessions.Revoke(ctx, sess.ID, domain.RevokeReasonLogout); rerr != nil {
			l.Warn("failed to revoke unbound session", slog.Any("error", rerr))
		}
		return LoginResult{}, err
	}

	jti := pair.AccessTokenJTI
	sess.AccessTokenJTI, sess.RefreshTokenJTI = &jti, &pair.RefreshTokenJTI

	l.Info("login succeeded", slog.String("user_id", user.ID), slog.String("session_id", sess.ID))
	s.audit(ctx, audit.Event{
		Type:      audit.EventLoginSucceeded,
		UserID:    user.ID,
		SessionID: sess.ID,
		Metadata: map[string]any{
			"ip":         sess.IPAddressMasked,
			"rememberMe": req.RememberMe,
			"mfa":        user.MFASecret != nil,
		},
	})

	return LoginResult{User: user, Session: sess, Tokens: pair}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("dummy-password-for-timing")
	})
	return s.dummyHash
}

// Refresh exchanges a refresh token for a new pair and invalidates the
// presented one. The swap is a compare-and-swap on the stored refresh jti,
// so a replayed or concurrently reused token fails with
// KindRefreshTokenMismatch.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (domain.TokenPair, error) {
	pair, err := s.refresh(ctx, req)
	if s.Metrics != nil {
		s.Metrics.Refreshes.WithLabelValues(metrics.Result(err)).Inc()
	}
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, req RefreshRequest) (domain.TokenPair, error) {
	const op = "auth.refresh"
	l := slogx.FromContext(ctx)

	if strings.TrimSpace(req.RefreshToken) == "" {
		return domain.TokenPair{}, newError(KindInvalidInput, op, errors.New("refresh token is required"))
	}

	claims, err := s.Tokens.VerifyRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		// An expired refresh token cannot be refreshed; the session is over
		// as far as the client is concerned.
		if IsKind(err, KindTokenExpired) {
			err = newError(KindSessionExpired, op, err)
		}
		s.rejected(ctx, "", "", err)
		return domain.TokenPair{}, err
	}

	sess, err := s.Sessions.ValidateForRefresh(ctx, claims.SessionID, claims.ID)
	if err == nil && sess.UserID != claims.UserID {
		err = newError(KindTokenInvalid, op, errors.New("session owner does not match token subject"))
	}
	if err != nil {
		s.rejected(ctx, claims.UserID, claims.SessionID, err)
		return domain.TokenPair{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		return domain.TokenPair{}, newError(KindInternal, op, fmt.Errorf("load user: %w", err))
	}
	if !user.IsActive {
		_, _ = s.Sessions.Revoke(ctx, sess.ID, domain.RevokeReasonUser)
		err := newError(KindSessionRevoked, op, errors.New("account disabled"))
		s.rejected(ctx, user.ID, sess.ID, err)
		return domain.TokenPair{}, err
	}

	pair, err := s.Tokens.IssueTokenPair(ctx, SessionContext{
		UserID:           user.ID,
		Email:            user.Email,
		Name:             user.Name,
		SessionID:        sess.ID,
		SessionExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Sessions.RotateTokenIdentifiers(ctx, sess.ID, claims.ID, pair.AccessTokenJTI, pair.RefreshTokenJTI); err != nil {
		s.rejected(ctx, user.ID, sess.ID, err)
		return domain.TokenPair{}, err
	}

	l.Debug("refresh succeeded", slog.String("session_id", sess.ID))
	s.audit(ctx, audit.Event{
		Type:      audit.EventRefreshSucceeded,
		UserID:    user.ID,
		SessionID: sess.ID,
		Metadata:  map[string]any{"ip": MaskIP(req.Client.IPAddress)},
	})
	return pair, nil
}

// rejected logs and audits a failed refresh. Replays are critical.
func (s *AuthService) rejected(ctx context.Context, userID, sessionID string, err error) {
	kind := KindOf(err)
	l := slogx.FromContext(ctx)

	if kind != KindRefreshTokenMismatch {
		l.Info("refresh rejected", slog.String("kind", kind.String()), slog.Any("error", err))
		s.audit(ctx, audit.Event{
			Type:      audit.EventRefreshRejected,
			Severity:  domain.SeverityWarning,
			Result:    domain.ResultFailure,
			UserID:    userID,
			SessionID: sessionID,
			Metadata:  map[string]any{"reason": kind.String()},
		})
		return
	}

	l.Warn("stale refresh token presented", slog.String("session_id", sessionID), slog.String("user_id", userID))
	revoked := false
	if s.RevokeOnReplay && sessionID != "" {
		var rerr error
		revoked, rerr = s.Sessions.Revoke(ctx, sessionID, domain.RevokeReasonReplay)
		if rerr != nil {
			l.Error("failed to revoke replayed session", slog.Any("error", rerr))
		}
	}
	s.audit(ctx, audit.Event{
		Type:      audit.EventRefreshReplay,
		Severity:  domain.SeverityCritical,
		Result:    domain.ResultFailure,
		UserID:    userID,
		SessionID: sessionID,
		Metadata:  map[string]any{"sessionRevoked": revoked},
	})
}

// Authenticate verifies a bearer access token and rejects tokens whose
// session is known to be revoked.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	const op = "auth.authenticate"

	claims, err := s.Tokens.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		return Principal{}, err
	}
	if s.Revocations != nil {
		revoked, err := s.Revocations.IsRevoked(ctx, claims.SessionID)
		if err != nil {
			return Principal{}, newError(KindInternal, op, err)
		}
		if revoked {
			return Principal{}, newError(KindSessionRevoked, op, nil)
		}
	}

	p := Principal{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Name:      claims.Name,
		SessionID: claims.SessionID,
		TokenID:   claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// Logout ends the caller's session, another of their sessions, or all of
// them.
func (s *AuthService) Logout(ctx context.Context, p Principal, req LogoutRequest) (LogoutResult, error) {
	const op = "auth.logout"

	var (
		n   int
		err error
	)
	switch {
	case req.RevokeAll:
		n, err = s.Sessions.RevokeAllForUser(ctx, p.UserID, domain.RevokeReasonLogoutAll)
	default:
		target := req.SessionID
		if target == "" {
			target = p.SessionID
		}
		if target != p.SessionID {
			if err := s.checkOwner(ctx, op, p, target); err != nil {
				return LogoutResult{}, err
			}
		}
		var ok bool
		ok, err = s.Sessions.Revoke(ctx, target, domain.RevokeReasonLogout)
		if ok {
			n = 1
		}
	}
	if err != nil {
		return LogoutResult{}, err
	}

	slogx.FromContext(ctx).Info("logout",
		slog.String("user_id", p.UserID),
		slog.Bool("all", req.RevokeAll),
		slog.Int("revoked", n),
	)
	s.audit(ctx, audit.Event{
		Type:      audit.EventLogout,
		UserID:    p.UserID,
		SessionID: p.SessionID,
		Metadata:  map[string]any{"revokeAll": req.RevokeAll, "sessionsRevoked": n},
	})
	return LogoutResult{SessionsRevoked: n}, nil
}

// ListSessions returns the caller's live sessions.
func (s *AuthService) ListSessions(ctx context.Context, p Principal) ([]domain.Session, error) {
	return s.Sessions.FindActiveSessions(ctx, p.UserID)
}

// RevokeSession ends one of the caller's sessions. Sessions of other users
// yield KindForbidden; unknown ids KindSessionNotFound. Revoking an already
// ended session succeeds.
func (s *AuthService) RevokeSession(ctx context.Context, p Principal, sessionID string) error {
	const op = "auth.revoke_session"

	if err := s.checkOwner(ctx, op, p, sessionID); err != nil {
		return err
	}
	ok, err := s.Sessions.Revoke(ctx, sessionID, domain.RevokeReasonUser)
	if err != nil {
		return err
	}
	if ok {
		s.audit(ctx, audit.Event{
			Type:      audit.EventSessionRevoked,
			UserID:    p.UserID,
			SessionID: sessionID,
			Metadata:  map[string]any{"by": p.SessionID},
		})
	}
	return nil
}

func (s *AuthService) checkOwner(ctx context.Context, op string, p Principal, sessionID string) error {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != p.UserID {
		return newError(KindForbidden, op, errors.New("session belongs to another user"))
	}
	return nil
}
