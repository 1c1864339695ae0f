package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/sessiond/pkg/httpx"
)

// Error codes sent in the "error" field.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidCredentials   = "invalid_credentials"
	ErrorCodeMFARequired          = "mfa_required"
	ErrorCodeTokenExpired         = "token_expired"
	ErrorCodeInvalidToken         = "invalid_token"
	ErrorCodeUnknownSigningKey    = "unknown_signing_key"
	ErrorCodeSessionNotFound      = "session_not_found"
	ErrorCodeSessionRevoked       = "session_revoked"
	ErrorCodeSessionExpired       = "session_expired"
	ErrorCodeRefreshTokenMismatch = "refresh_token_mismatch"
	ErrorCodeForbidden            = "forbidden"
	ErrorCodeNotFound             = "not_found"
	ErrorCodeTimeout              = "timeout"
	ErrorCodeRateLimited          = "rate_limit_exceeded"
	ErrorCodeServerError          = "internal_error"
)

// APIError is an error response from the service. It is used both by the
// server to write responses and by the client to report them.
type APIError struct {
	StatusCode     int    `json:"-"`
	Code           string `json:"error"`
	Description    string `json:"error_description"`
	RequiresReauth bool   `json:"requiresReauth"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes e as a JSON error response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
		RequiresReauth:   e.RequiresReauth,
	})
}

// NewAPIError creates an APIError.
func NewAPIError(statusCode int, code, description string, requiresReauth bool) *APIError {
	return &APIError{
		StatusCode:     statusCode,
		Code:           code,
		Description:    description,
		RequiresReauth: requiresReauth,
	}
}

var (
	// ErrInvalidToken is returned when the bearer token is missing.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid, expired or revoked",
	}

	// ErrServerError hides internal failures from clients.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	// ErrReauthRequired is returned by Session once the server has told it
	// to log in again. The session's tokens are cleared.
	ErrReauthRequired = errors.New("authsdk: re-authentication required")
)

// RequiresReauth reports whether err tells the caller to log in again.
func RequiresReauth(err error) bool {
	if errors.Is(err, ErrReauthRequired) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.RequiresReauth
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:     resp.StatusCode,
			Code:           errResp.Error,
			Description:    errResp.ErrorDescription,
			RequiresReauth: errResp.RequiresReauth,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
