package httpx

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds every request unless configured otherwise.
const DefaultRequestTimeout = 5 * time.Second

// Timeout attaches a deadline to the request context. Handlers pass the
// context down to storage, so a slow dependency surfaces as a
// context.DeadlineExceeded error that the handler maps to 503.
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		d = DefaultRequestTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
