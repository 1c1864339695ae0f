package http

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/internal/auth/service"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
)

// LoginHandler serves POST /auth/v2/login.
type LoginHandler struct {
	AuthService *service.AuthService
}

func validateLogin(req *authsdk.LoginRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Email, validation.Required, is.Email, validation.Length(3, 254)),
		validation.Field(&req.Password, validation.Required, validation.Length(1, 128)),
		validation.Field(&req.OTPCode, is.Digit, validation.Length(6, 8)),
		validation.Field(&req.IPAddress, is.IP),
		validation.Field(&req.UserAgent, validation.Length(0, 512)),
		validation.Field(&req.DeviceFingerprint, validation.Length(0, 256)),
	)
}

// ServeHTTP godoc
//
//	@Summary		Log in
//	@Description	Checks credentials and opens a new session. Every credential failure is reported as invalid_credentials.
//	@Description	Users with TOTP enrolled must send otpCode; without it the call fails with mfa_required.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials and client metadata"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials or mfa_required"
//	@Failure		422		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Failure		503		{object}	authsdk.ErrorResponse	"timeout or no_active_key"
//	@Router			/auth/v2/login [post]
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalid(w, err)
		return
	}
	if err := validateLogin(&req); err != nil {
		writeInvalid(w, err)
		return
	}

	res, err := h.AuthService.Login(r.Context(), service.LoginRequest{
		Email:      req.Email,
		Password:   req.Password,
		OTPCode:    req.OTPCode,
		RememberMe: req.RememberMe,
		Client:     clientMetadata(r, req.IPAddress, req.UserAgent, req.DeviceFingerprint),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		User: authsdk.UserInfo{
			ID:    res.User.ID,
			Email: res.User.Email,
			Name:  res.User.Name,
		},
		AccessToken:           res.Tokens.AccessToken,
		RefreshToken:          res.Tokens.RefreshToken,
		AccessTokenExpiresAt:  res.Tokens.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: res.Tokens.RefreshTokenExpiresAt,
		SessionID:             res.Session.ID,
	})
}

// clientMetadata prefers values forwarded in the body by a trusted
// frontend and falls back to the connection.
func clientMetadata(r *http.Request, ip, userAgent, fingerprint string) domain.ClientMetadata {
	if ip == "" {
		ip = httpx.IPKeyExtractor(r)
	}
	if userAgent == "" {
		userAgent = r.UserAgent()
	}
	return domain.ClientMetadata{
		IPAddress:         ip,
		UserAgent:         userAgent,
		DeviceFingerprint: fingerprint,
	}
}
