package http

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/aussiebroadwan/sessiond/internal/auth/service"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
)

// RefreshHandler serves POST /auth/v2/refresh.
type RefreshHandler struct {
	AuthService *service.AuthService
}

func validateRefresh(req *authsdk.RefreshRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.RefreshToken, validation.Required, validation.Length(1, 8192)),
		validation.Field(&req.IPAddress, is.IP),
		validation.Field(&req.UserAgent, validation.Length(0, 512)),
	)
}

// ServeHTTP godoc
//
//	@Summary		Refresh tokens
//	@Description	Exchanges a refresh token for a new pair. The presented refresh token is spent; presenting it again fails with refresh_token_mismatch.
//	@Description	When requiresReauth is true the client must discard its tokens and log in again.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenPairResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"token or session rejected"
//	@Failure		422		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		503		{object}	authsdk.ErrorResponse	"timeout or no_active_key"
//	@Router			/auth/v2/refresh [post]
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalid(w, err)
		return
	}
	if err := validateRefresh(&req); err != nil {
		writeInvalid(w, err)
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), service.RefreshRequest{
		RefreshToken: req.RefreshToken,
		Client:       clientMetadata(r, req.IPAddress, req.UserAgent, ""),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenPairResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
	})
}
