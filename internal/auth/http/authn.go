package http

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/sessiond/internal/auth/service"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

type principalKey struct{}

// bearerAuth adapts AuthService to the bearer middleware. Every accepted
// token advances its session's last activity.
type bearerAuth struct {
	auth *service.AuthService
}

func (b bearerAuth) AuthenticateBearer(ctx context.Context, token string) (context.Context, error) {
	p, err := b.auth.Authenticate(ctx, token)
	if err != nil {
		return ctx, err
	}
	ctx = context.WithValue(ctx, principalKey{}, p)
	ctx = httpx.WithSubject(ctx, p.UserID, p.SessionID)
	ctx = slogx.With(ctx, "user_id", p.UserID, "session_id", p.SessionID)

	if b.auth.Sessions != nil {
		if err := b.auth.Sessions.TouchActivity(ctx, p.SessionID); err != nil {
			slogx.FromContext(ctx).Warn("failed to record session activity", slog.Any("error", err))
		}
	}
	return ctx, nil
}

// principalFrom returns the caller set by the bearer middleware.
func principalFrom(ctx context.Context) (service.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(service.Principal)
	return p, ok
}
