package http

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/sessiond/api/auth" // Swagger docs
	"github.com/aussiebroadwan/sessiond/internal/auth/metrics"
	"github.com/aussiebroadwan/sessiond/internal/auth/revocation"
	"github.com/aussiebroadwan/sessiond/internal/auth/service"
	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	metrics      *metrics.Metrics
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService        *service.AuthService
	TokenService       *service.TokenService
	KeyRotationService *service.KeyRotationService

	// Revocations is reported on /readyz when it can be pinged. Optional.
	Revocations revocation.Cache

	// AdminToken guards the key endpoints. Empty disables them.
	AdminToken string

	// Limits are the rate limit profiles applied by ApplyRoutes.
	Limits httpx.RateLimits
}

func NewRouter(
	keys *jwtx.KeyManager,
	st store.Store,
	m *metrics.Metrics,
	buildVersion string,
	requestTimeout time.Duration,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		metrics:      m,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       httpx.DefaultRateLimits(),
	}

	// The metrics middleware goes last so it sees the request the mux
	// matched against.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Timeout(requestTimeout),
	}
	if m != nil {
		r.middlewares = append(r.middlewares, metricsMiddleware(m))
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSessions()
	r.registerKeys()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Session Authentication Service API
//	@version		0.1.0
//	@description	Session-scoped JWT authentication. Logins open a server-side session; every refresh rotates the refresh token.
//	@description
//	@description				Tokens are signed with RS256 or PS256 and can be verified using the JWKS endpoint.
//	@description				Error bodies carry requiresReauth; when it is true the client must log in again.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/sessiond
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(bearerAuth{auth: r.AuthService}, writeError)
}

func (r *Router) registerAuth() {
	// POST /login - strict rate limit by IP + email to slow credential stuffing
	r.Mux.Handle("POST /auth/v2/login",
		httpx.Chain(&LoginHandler{AuthService: r.AuthService},
			httpx.RateLimitByIPAndJSONField(r.Limits.Strict, "email"),
		),
	)

	// POST /refresh - moderate rate limit by IP
	r.Mux.Handle("POST /auth/v2/refresh",
		httpx.Chain(&RefreshHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)

	// POST /token/info - diagnostic, decodes without verifying
	r.Mux.Handle("POST /auth/v2/token/info",
		httpx.Chain(&TokenInfoHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)

	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{AuthService: r.AuthService}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			r.authn(),
			httpx.RateLimitByUser(r.Limits.Moderate),
		)
	}

	r.Mux.Handle("POST /auth/v2/logout", secured(h.HandleLogout))
	r.Mux.Handle("GET /auth/v2/sessions", secured(h.HandleList))
	r.Mux.Handle("DELETE /auth/v2/sessions/{id}", secured(h.HandleRevoke))
}

func (r *Router) registerKeys() {
	// Available with both ephemeral and persistent key managers. Rotation
	// with an ephemeral manager only affects this process.
	h := &KeyRotationHandler{KeyRotationService: r.KeyRotationService}

	admin := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.RateLimitByIP(r.Limits.Moderate),
			httpx.RequireAdminToken(r.AdminToken),
		)
	}

	r.Mux.Handle("GET /auth/v2/keys", admin(h.HandleListKeys))
	r.Mux.Handle("POST /auth/v2/keys/rotate", admin(h.HandleRotate))
}

func (r *Router) registerSystem() {
	h := &HealthHandler{
		StartTime:   r.startTime,
		Version:     r.buildVersion,
		Store:       r.store,
		Keys:        r.keys,
		Revocations: r.Revocations,
	}
	probes := r.Limits.Lenient

	r.Mux.Handle("GET /livez", httpx.Chain(http.HandlerFunc(h.HandleLivez), httpx.RateLimitByIP(probes)))
	r.Mux.Handle("GET /readyz", httpx.Chain(http.HandlerFunc(h.HandleReadyz), httpx.RateLimitByIP(probes)))
	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
