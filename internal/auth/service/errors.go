package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

// Kind classifies every failure the service reports. The set is closed;
// callers switch on it instead of matching messages.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindInvalidCredentials
	KindMFARequired
	KindTokenExpired
	KindTokenInvalid
	KindMissingKeyID
	KindUnsupportedAlgorithm
	KindUnknownSigningKey
	KindNoActiveKey
	KindSessionNotFound
	KindSessionRevoked
	KindSessionExpired
	KindRefreshTokenMismatch
	KindForbidden
	KindTimeout
)

var kindCodes = map[Kind]string{
	KindInternal:             "internal_error",
	KindInvalidInput:         "invalid_request",
	KindInvalidCredentials:   "invalid_credentials",
	KindMFARequired:          "mfa_required",
	KindTokenExpired:         "token_expired",
	KindTokenInvalid:         "invalid_token",
	KindMissingKeyID:         "missing_key_id",
	KindUnsupportedAlgorithm: "unsupported_algorithm",
	KindUnknownSigningKey:    "unknown_signing_key",
	KindNoActiveKey:          "no_active_key",
	KindSessionNotFound:      "session_not_found",
	KindSessionRevoked:       "session_revoked",
	KindSessionExpired:       "session_expired",
	KindRefreshTokenMismatch: "refresh_token_mismatch",
	KindForbidden:            "forbidden",
	KindTimeout:              "timeout",
}

// String returns the wire code used in error responses.
func (k Kind) String() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return kindCodes[KindInternal]
}

// RequiresReauth reports whether the client must discard its tokens and log
// in again rather than retry or refresh.
func (k Kind) RequiresReauth() bool {
	switch k {
	case KindUnknownSigningKey,
		KindRefreshTokenMismatch,
		KindSessionRevoked,
		KindSessionExpired,
		KindMissingKeyID,
		KindUnsupportedAlgorithm,
		KindTokenInvalid:
		return true
	}
	return false
}

func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusUnprocessableEntity
	case KindInvalidCredentials,
		KindMFARequired,
		KindTokenExpired,
		KindTokenInvalid,
		KindMissingKeyID,
		KindUnsupportedAlgorithm,
		KindUnknownSigningKey,
		KindSessionRevoked,
		KindSessionExpired,
		KindRefreshTokenMismatch:
		return http.StatusUnauthorized
	case KindSessionNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindTimeout, KindNoActiveKey:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the error type returned by every exported service method.
type Error struct {
	Kind Kind
	Op   string // e.g. "auth.refresh"
	Err  error  // underlying cause, never shown to clients

	// Reauth marks a failure that ends the caller's own session even though
	// Kind alone does not, such as a refresh against a deleted session.
	Reauth bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind of err. Context deadlines map to KindTimeout and
// anything unclassified to KindInternal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// RequiresReauth reports whether err tells the client to discard its tokens.
func RequiresReauth(err error) bool {
	var se *Error
	if errors.As(err, &se) && se.Reauth {
		return true
	}
	return KindOf(err).RequiresReauth()
}

// HTTPStatus returns the response status for err. A missing session is 404
// unless it was the caller's own, which is 401.
func HTTPStatus(err error) int {
	kind := KindOf(err)
	if kind == KindSessionNotFound && RequiresReauth(err) {
		return http.StatusUnauthorized
	}
	return kind.HTTPStatus()
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// classify maps lower-level errors to a service Error. Errors already
// classified pass through.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}

	kind := KindInternal
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = KindTimeout
	case errors.Is(err, jwtx.ErrExpired):
		kind = KindTokenExpired
	case errors.Is(err, jwtx.ErrMissingKID):
		kind = KindMissingKeyID
	case errors.Is(err, jwtx.ErrUnsupportedAlg), errors.Is(err, jwtx.ErrAlgMismatch):
		kind = KindUnsupportedAlgorithm
	case errors.Is(err, jwtx.ErrUnknownKID):
		kind = KindUnknownSigningKey
	case errors.Is(err, jwtx.ErrNoActiveKey):
		kind = KindNoActiveKey
	case errors.Is(err, jwtx.ErrMalformed),
		errors.Is(err, jwtx.ErrInvalidSig),
		errors.Is(err, jwtx.ErrIssuer),
		errors.Is(err, jwtx.ErrAudience),
		errors.Is(err, jwtx.ErrNotYetValid),
		errors.Is(err, jwtx.ErrTokenType),
		errors.Is(err, jwtx.ErrInvalidClaim):
		kind = KindTokenInvalid
	case errors.Is(err, store.ErrNotFound):
		kind = KindSessionNotFound
	}
	return newError(kind, op, err)
}

// classifyOwn is classify for lookups of the caller's own session, where a
// missing row means the client has nothing left to refresh.
func classifyOwn(op string, err error) error {
	err = classify(op, err)
	var se *Error
	if errors.As(err, &se) && se.Kind == KindSessionNotFound {
		return &Error{Kind: se.Kind, Op: se.Op, Err: se.Err, Reauth: true}
	}
	return err
}
