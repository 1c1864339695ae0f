package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// ErrMissingBearer is passed to the ErrorWriter when the request carries no
// bearer token.
var ErrMissingBearer = errors.New("missing bearer token")

// BearerAuthenticator checks a bearer token and returns ctx enriched with
// the caller's identity.
type BearerAuthenticator interface {
	AuthenticateBearer(ctx context.Context, token string) (context.Context, error)
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

func AuthnMiddleware(a BearerAuthenticator, onError ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				setBearerChallenge(w, "missing bearer token")
				onError(w, r, ErrMissingBearer)
				return
			}

			ctx, err := a.AuthenticateBearer(ctx, raw)
			if err != nil {
				log.Info("bearer token rejected", "err", err)
				setBearerChallenge(w, "token verification failed")
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750 challenge for bearer auth.
func setBearerChallenge(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
}
