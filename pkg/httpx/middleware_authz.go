package httpx

import (
	"crypto/subtle"
	"net/http"
)

// AdminTokenHeader carries the operator token for administrative routes.
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards operator endpoints with a shared secret sent in
// X-Admin-Token. With an empty token the routes are disabled and answer 404.
func RequireAdminToken(token string) Middleware {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) == 0 {
				WriteJSON(w, http.StatusNotFound, map[string]any{
					"error":             "not_found",
					"error_description": "admin endpoints are disabled",
					"requiresReauth":    false,
				})
				return
			}

			got := []byte(r.Header.Get(AdminTokenHeader))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				WriteJSON(w, http.StatusForbidden, map[string]any{
					"error":             "forbidden",
					"error_description": "a valid admin token is required",
					"requiresReauth":    false,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
