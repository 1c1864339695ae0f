package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessiond/internal/auth/service"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

// KeyRotationHandler exposes the signing key table to operators. Both
// endpoints require the X-Admin-Token header.
type KeyRotationHandler struct {
	KeyRotationService *service.KeyRotationService
}

// HandleRotate handles POST /auth/v2/keys/rotate
//
//	@Summary		Rotate signing keys
//	@Description	Activates a new signing key. The previous key keeps verifying tokens until its overlap window ends.
//	@Tags			Keys
//	@Produce		json
//	@Param			X-Admin-Token	header		string	true	"Operator token"
//	@Success		200				{object}	authsdk.RotateKeyResponse
//	@Failure		403				{object}	authsdk.ErrorResponse	"Forbidden"
//	@Failure		404				{object}	authsdk.ErrorResponse	"Admin endpoints disabled"
//	@Failure		500				{object}	authsdk.ErrorResponse
//	@Router			/auth/v2/keys/rotate [post]
func (h *KeyRotationHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	resp, err := h.KeyRotationService.RotateKey(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RotateKeyResponse{
		NewKey: authsdk.SigningKeyInfo(resp.NewKey),
		Keys:   toSDKKeys(resp.Keys),
	})
}

// HandleListKeys handles GET /auth/v2/keys
//
//	@Summary		List signing keys
//	@Description	Lists active and retired signing keys without key material, newest first.
//	@Tags			Keys
//	@Produce		json
//	@Param			X-Admin-Token	header		string	true	"Operator token"
//	@Success		200				{object}	authsdk.ListKeysResponse
//	@Failure		403				{object}	authsdk.ErrorResponse	"Forbidden"
//	@Failure		404				{object}	authsdk.ErrorResponse	"Admin endpoints disabled"
//	@Failure		500				{object}	authsdk.ErrorResponse
//	@Router			/auth/v2/keys [get]
func (h *KeyRotationHandler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.KeyRotationService.ListSigningKeys(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.ListKeysResponse{Keys: toSDKKeys(keys)})
}

func toSDKKeys(keys []jwtx.KeyInfo) []authsdk.SigningKeyInfo {
	out := make([]authsdk.SigningKeyInfo, len(keys))
	for i, k := range keys {
		out[i] = authsdk.SigningKeyInfo(k)
	}
	return out
}
