package service

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/internal/auth/metrics"
	"github.com/aussiebroadwan/sessiond/internal/auth/revocation"
	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// Default session lifetimes.
const (
	DefaultSessionTTL    = 24 * time.Hour
	DefaultRememberMeTTL = 7 * 24 * time.Hour
)

// SessionManager owns the session lifecycle. Every mutation is a single
// conditional statement in the store, so it is safe across processes
// without application locks.
type SessionManager struct {
	Store store.Store

	// HashKey keys the HMAC applied to IP addresses and user agents.
	HashKey []byte

	DefaultTTL    time.Duration
	RememberMeTTL time.Duration

	// Revocations, when set, learns about every revoked session for
	// RevocationTTL so bearer checks can reject tokens of revoked sessions
	// until they stop verifying. Use TokenService.RevocationWindow.
	Revocations   revocation.Cache
	RevocationTTL time.Duration

	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (m *SessionManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *SessionManager) ttl(rememberMe bool) time.Duration {
	if rememberMe {
		if m.RememberMeTTL > 0 {
			return m.RememberMeTTL
		}
		return DefaultRememberMeTTL
	}
	if m.DefaultTTL > 0 {
		return m.DefaultTTL
	}
	return DefaultSessionTTL
}

// CreateSession persists a new active session with no tokens bound.
func (m *SessionManager) CreateSession(ctx context.Context, userID string, meta domain.ClientMetadata, rememberMe bool) (domain.Session, error) {
	const op = "session.create"

	id, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Session{}, newError(KindInternal, op, err)
	}

	now := m.now()
	risk := min(max(meta.RiskScore, 0), 100)
	sess := domain.Session{
		ID:                id,
		UserID:            userID,
		IPAddressHash:     cryptox.KeyedFingerprint(m.HashKey, strings.TrimSpace(meta.IPAddress)),
		IPAddressMasked:   MaskIP(meta.IPAddress),
		UserAgent:         truncate(meta.UserAgent, 512),
		UserAgentHash:     cryptox.KeyedFingerprint(m.HashKey, meta.UserAgent),
		DeviceFingerprint: truncate(meta.DeviceFingerprint, 256),
		RiskScore:         risk,
		IsActive:          true,
		CreatedAt:         now,
		LastActivityAt:    now,
		ExpiresAt:         now.Add(m.ttl(rememberMe)),
	}
	if err := m.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.Session{}, classify(op, err)
	}
	return sess, nil
}

// Get returns the session whatever its state.
func (m *SessionManager) Get(ctx context.Context, id string) (domain.Session, error) {
	sess, err := m.Store.Sessions().GetSession(ctx, id)
	if err != nil {
		return domain.Session{}, classify("session.get", err)
	}
	return sess, nil
}

// BindTokenIdentifiers attaches the first token pair to a session.
func (m *SessionManager) BindTokenIdentifiers(ctx context.Context, id, accessJTI, refreshJTI string) error {
	const op = "session.bind"

	ok, err := m.Store.Sessions().BindTokens(ctx, id, accessJTI, refreshJTI, m.now())
	if err != nil {
		return classify(op, err)
	}
	if !ok {
		return m.explainMiss(ctx, op, id, errors.New("tokens already bound"))
	}
	return nil
}

// RotateTokenIdentifiers swaps the bound pair for a new one, provided the
// stored refresh jti is still presentedRefreshJTI. Of two concurrent calls
// with the same presented jti exactly one succeeds; the other gets
// KindRefreshTokenMismatch.
func (m *SessionManager) RotateTokenIdentifiers(ctx context.Context, id, presentedRefreshJTI, accessJTI, refreshJTI string) error {
	const op = "session.rotate"

	ok, err := m.Store.Sessions().RotateTokens(ctx, id, presentedRefreshJTI, accessJTI, refreshJTI, m.now())
	if err != nil {
		return classify(op, err)
	}
	if !ok {
		return m.explainMiss(ctx, op, id, nil)
	}
	return nil
}

// explainMiss turns a conditional update that matched nothing into the
// most specific error. If the session is still live, the miss is reported
// as cause, or as a refresh jti mismatch when cause is nil.
func (m *SessionManager) explainMiss(ctx context.Context, op, id string, cause error) error {
	sess, err := m.Store.Sessions().GetSession(ctx, id)
	if err != nil {
		return classifyOwn(op, err)
	}
	switch sess.Status(m.now()) {
	case domain.SessionRevoked:
		return newError(KindSessionRevoked, op, nil)
	case domain.SessionExpired:
		return newError(KindSessionExpired, op, nil)
	}
	if cause != nil {
		return newError(KindInternal, op, cause)
	}
	return newError(KindRefreshTokenMismatch, op, nil)
}

// TouchActivity advances last_activity_at. Inactive sessions are left
// alone and no error is reported.
func (m *SessionManager) TouchActivity(ctx context.Context, id string) error {
	_, err := m.Store.Sessions().TouchSession(ctx, id, m.now())
	return classify("session.touch", err)
}

// Revoke ends a session. Revoking an inactive session is a no-op; the
// returned bool says whether this call changed anything.
func (m *SessionManager) Revoke(ctx context.Context, id, reason string) (bool, error) {
	ok, err := m.Store.Sessions().RevokeSession(ctx, id, reason, m.now())
	if err != nil {
		return false, classify("session.revoke", err)
	}
	if ok {
		m.revoked(ctx, reason, id)
	}
	return ok, nil
}

// RevokeAllForUser ends every live session of userID and returns how many
// it ended.
func (m *SessionManager) RevokeAllForUser(ctx context.Context, userID, reason string) (int, error) {
	ids, err := m.Store.Sessions().RevokeUserSessions(ctx, userID, reason, m.now())
	if err != nil {
		return 0, classify("session.revoke_all", err)
	}
	m.revoked(ctx, reason, ids...)
	return len(ids), nil
}

func (m *SessionManager) revoked(ctx context.Context, reason string, ids ...string) {
	if m.Metrics != nil && len(ids) > 0 {
		m.Metrics.Revocations.WithLabelValues(reason).Add(float64(len(ids)))
	}
	if m.Revocations == nil {
		return
	}
	for _, id := range ids {
		if err := m.Revocations.Revoke(ctx, id, m.RevocationTTL); err != nil {
			slogx.FromContext(ctx).Warn("failed to cache session revocation",
				slog.String("session_id", id),
				slog.Any("error", err),
			)
		}
	}
}

// FindActiveSessions lists the user's live sessions, most recent first.
func (m *SessionManager) FindActiveSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := m.Store.Sessions().ListActiveSessions(ctx, userID, m.now())
	if err != nil {
		return nil, classify("session.list", err)
	}
	return sessions, nil
}

// ValidateForRefresh checks that a session may be refreshed with the
// presented refresh jti. Every failure, a missing session included,
// requires the client to log in again.
func (m *SessionManager) ValidateForRefresh(ctx context.Context, id, presentedRefreshJTI string) (domain.Session, error) {
	const op = "session.validate_refresh"

	sess, err := m.Store.Sessions().GetSession(ctx, id)
	if err != nil {
		return domain.Session{}, classifyOwn(op, err)
	}
	if err := checkRefreshable(op, sess, presentedRefreshJTI, m.now()); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

func checkRefreshable(op string, sess domain.Session, presentedRefreshJTI string, now time.Time) error {
	switch sess.Status(now) {
	case domain.SessionRevoked:
		return newError(KindSessionRevoked, op, nil)
	case domain.SessionExpired:
		return newError(KindSessionExpired, op, nil)
	}
	if sess.RefreshTokenJTI == nil || *sess.RefreshTokenJTI != presentedRefreshJTI {
		return newError(KindRefreshTokenMismatch, op, nil)
	}
	return nil
}

// MaskIP keeps the network part of an address for display: /24 for IPv4,
// /48 for IPv6. Unparseable input yields "".
func MaskIP(raw string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return ""
	}
	return prefix.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
