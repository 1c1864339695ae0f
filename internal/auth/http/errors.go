package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/sessiond/internal/auth/service"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// Client-facing descriptions. Causes stay in the logs.
var kindDescriptions = map[service.Kind]string{
	service.KindInternal:             "internal server error",
	service.KindInvalidInput:         "the request is invalid",
	service.KindInvalidCredentials:   "invalid email or password",
	service.KindMFARequired:          "a one-time code is required",
	service.KindTokenExpired:         "the token has expired",
	service.KindTokenInvalid:         "the token is invalid",
	service.KindMissingKeyID:         "the token has no key id",
	service.KindUnsupportedAlgorithm: "the token algorithm is not accepted",
	service.KindUnknownSigningKey:    "the token was signed by an unknown key",
	service.KindNoActiveKey:          "no signing key is available",
	service.KindSessionNotFound:      "session not found",
	service.KindSessionRevoked:       "the session has been revoked",
	service.KindSessionExpired:       "the session has expired",
	service.KindRefreshTokenMismatch: "the refresh token has already been used",
	service.KindForbidden:            "the session belongs to another user",
	service.KindTimeout:              "the request timed out",
}

// writeError renders err as an error body. Status, code and the
// requiresReauth flag come from the error's Kind and its Reauth mark.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	l := slogx.FromContext(r.Context())

	if errors.Is(err, httpx.ErrMissingBearer) {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	kind := service.KindOf(err)
	if kind == service.KindInternal && errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		kind = service.KindTimeout
	}

	desc := kindDescriptions[kind]
	var se *service.Error
	if kind == service.KindInvalidInput && errors.As(err, &se) && se.Err != nil {
		desc = se.Err.Error()
	}

	switch kind {
	case service.KindInternal, service.KindNoActiveKey:
		l.Error("request failed", slog.String("kind", kind.String()), slog.Any("error", err))
	case service.KindTimeout:
		l.Warn("request timed out", slog.Any("error", err))
	}

	status := service.HTTPStatus(err)
	if kind == service.KindTimeout {
		status = kind.HTTPStatus()
	}
	authsdk.NewAPIError(status, kind.String(), desc, service.RequiresReauth(err)).WriteError(w)
}

// writeInvalid reports a body that failed to decode or validate.
func writeInvalid(w http.ResponseWriter, err error) {
	authsdk.NewAPIError(http.StatusUnprocessableEntity, authsdk.ErrorCodeInvalidRequest, err.Error(), false).WriteError(w)
}
