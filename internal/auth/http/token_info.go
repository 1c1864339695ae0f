package http

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/aussiebroadwan/sessiond/internal/auth/service"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
)

// TokenInfoHandler serves POST /auth/v2/token/info.
type TokenInfoHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Inspect a token
//	@Description	Decodes a token's header and timing claims without verifying the signature. Intended for debugging clients.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.TokenInfoRequest	true	"Token to inspect"
//	@Success		200		{object}	authsdk.TokenInfoResponse
//	@Failure		422		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Router			/auth/v2/token/info [post]
func (h *TokenInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.TokenInfoRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalid(w, err)
		return
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Token, validation.Required, validation.Length(1, 8192)),
	); err != nil {
		writeInvalid(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenInfoResponse(h.TokenService.TokenInfo(req.Token)))
}
