package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/sessiond/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is one token bucket profile: RequestsPerWindow tokens
// refill over Window and up to Burst may be spent at once.
type RateLimitConfig struct {
	Name              string
	RequestsPerWindow int
	Window            time.Duration
	Burst             int

	// OnReject is called with Name for every throttled request.
	OnReject func(name string)
}

func (c RateLimitConfig) perSecond() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// RateLimits groups the profiles used by the router.
type RateLimits struct {
	Strict   RateLimitConfig // credential checks
	Moderate RateLimitConfig // token and session operations
	Lenient  RateLimitConfig // health checks
	Public   RateLimitConfig // key discovery
}

// DefaultRateLimits returns the production profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   RateLimitConfig{Name: "strict", RequestsPerWindow: 5, Window: time.Minute, Burst: 5},
		Moderate: RateLimitConfig{Name: "moderate", RequestsPerWindow: 20, Window: time.Minute, Burst: 20},
		Lenient:  RateLimitConfig{Name: "lenient", RequestsPerWindow: 100, Window: time.Minute, Burst: 100},
		Public:   RateLimitConfig{Name: "public", RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	}
}

// FromEnv overrides each profile from RATELIMIT_{STRICT,MODERATE,LENIENT,PUBLIC}_
// {REQUESTS,WINDOW_SEC,BURST}. Invalid or non-positive values are ignored.
func (l RateLimits) FromEnv(lookup func(string) (string, bool)) RateLimits {
	l.Strict = l.Strict.fromEnv("STRICT", lookup)
	l.Moderate = l.Moderate.fromEnv("MODERATE", lookup)
	l.Lenient = l.Lenient.fromEnv("LENIENT", lookup)
	l.Public = l.Public.fromEnv("PUBLIC", lookup)
	return l
}

// WithRejectHook sets OnReject on every profile.
func (l RateLimits) WithRejectHook(fn func(name string)) RateLimits {
	l.Strict.OnReject = fn
	l.Moderate.OnReject = fn
	l.Lenient.OnReject = fn
	l.Public.OnReject = fn
	return l
}

func (c RateLimitConfig) fromEnv(prefix string, lookup func(string) (string, bool)) RateLimitConfig {
	positive := func(field string) (int, bool) {
		raw, ok := lookup("RATELIMIT_" + prefix + "_" + field)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		return n, err == nil && n > 0
	}

	if n, ok := positive("REQUESTS"); ok {
		c.RequestsPerWindow = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		c.Window = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		c.Burst = n
	}
	return c
}

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g., IP address, user ID, client ID, etc.)
type KeyExtractor func(*http.Request) string

// Common key extractors

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	// Check X-Forwarded-For header (comma-separated list)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fallback to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// UserIDKeyExtractor extracts the user ID from the request context.
// Returns empty string if no user ID is found.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

// CompositeKeyExtractor combines multiple key extractors with a separator.
// Example: CompositeKeyExtractor(":", IPKeyExtractor, UserIDKeyExtractor)
// would produce keys like "192.168.1.1:user123"
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// JSONFieldKeyExtractor extracts a top-level string field from a JSON
// request body, such as the email of a login attempt. The body is restored
// so the handler can decode it again.
func JSONFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return ""
		}
		var v string
		if err := json.Unmarshal(fields[fieldName], &v); err != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}

// limiterIdleTTL is how long an unused bucket is kept.
const limiterIdleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// keyedLimiter holds one bucket per key and drops idle ones.
type keyedLimiter struct {
	cfg     RateLimitConfig
	buckets sync.Map // string -> *bucket
	now     func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

func newKeyedLimiter(cfg RateLimitConfig) *keyedLimiter {
	return &keyedLimiter{cfg: cfg, now: time.Now, lastSweep: time.Now()}
}

func (kl *keyedLimiter) bucket(key string) *bucket {
	now := kl.now()
	if v, ok := kl.buckets.Load(key); ok {
		b := v.(*bucket)
		b.lastSeen.Store(now.UnixNano())
		return b
	}

	b := &bucket{limiter: rate.NewLimiter(kl.cfg.perSecond(), kl.cfg.Burst)}
	b.lastSeen.Store(now.UnixNano())
	actual, _ := kl.buckets.LoadOrStore(key, b)
	kl.maybeSweep(now)
	return actual.(*bucket)
}

func (kl *keyedLimiter) maybeSweep(now time.Time) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	if now.Sub(kl.lastSweep) < limiterIdleTTL/2 {
		return
	}
	kl.lastSweep = now

	cutoff := now.Add(-limiterIdleTTL).UnixNano()
	kl.buckets.Range(func(key, value any) bool {
		if value.(*bucket).lastSeen.Load() < cutoff {
			kl.buckets.Delete(key)
		}
		return true
	})
}

// allow reports whether a request for key may proceed and, if not, how
// long until the next token.
func (kl *keyedLimiter) allow(key string) (bool, time.Duration) {
	lim := kl.bucket(key).limiter
	now := kl.now()
	if lim.AllowN(now, 1) {
		return true, 0
	}
	r := lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay
}

// RateLimitMiddleware throttles requests grouped by keyExtractor. Requests
// without a key are let through.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	kl := newKeyedLimiter(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyExtractor(r)
			if key == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: unable to extract key, allowing request",
					"limit", config.Name)
				next.ServeHTTP(w, r)
				return
			}

			ok, delay := kl.allow(key)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(math.Ceil(delay.Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", config.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"limit", config.Name,
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)
			if config.OnReject != nil {
				config.OnReject(config.Name)
			}

			WriteJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":             "rate_limit_exceeded",
				"error_description": "Too many requests. Please try again later.",
				"requiresReauth":    false,
			})
		})
	}
}

// Convenience functions for common rate limiting scenarios

// RateLimitByIP creates a rate limiter that limits by IP address only.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitByUser creates a rate limiter that limits by authenticated user ID.
// Falls back to IP if no user is authenticated.
func RateLimitByUser(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		UserIDKeyExtractor,
		IPKeyExtractor,
	))
}

// RateLimitByIPAndJSONField creates a rate limiter that limits by IP + a
// JSON body field. Useful for limiting login attempts by IP + email.
func RateLimitByIPAndJSONField(config RateLimitConfig, fieldName string) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		IPKeyExtractor,
		JSONFieldKeyExtractor(fieldName),
	))
}
