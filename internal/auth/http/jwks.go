package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

// JWKSCacheControl lets verifiers cache the key set for an hour. Key
// overlap windows are longer than that, so a cached set always contains
// the key of any token still being issued.
const JWKSCacheControl = "public, max-age=3600"

// JWKSHandler exposes the JSON Web Key Set for public key discovery. The
// set holds the active key and every retired key still inside its overlap
// window.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify access tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Header			200	{string}	Cache-Control			"public, max-age=3600"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", JWKSCacheControl)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(authsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
