package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/sessiond/internal/auth/audit"
	httpapi "github.com/aussiebroadwan/sessiond/internal/auth/http"
	"github.com/aussiebroadwan/sessiond/internal/auth/metrics"
	"github.com/aussiebroadwan/sessiond/internal/auth/revocation"
	"github.com/aussiebroadwan/sessiond/internal/auth/service"
	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/sessiond/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	keyManager  *jwtx.KeyManager
	pepper      []byte
	metrics     *metrics.Metrics
	redis       *redis.Client     // nil without REDIS_URL
	publisher   message.Publisher // nil without REDIS_URL
	revocations revocation.Cache
	audit       audit.Sink

	// Services
	tokenService        *service.TokenService
	sessionManager      *service.SessionManager
	authService         *service.AuthService
	keyRotationService  *service.KeyRotationService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "sessiond",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg:     cfg,
		logger:  NewLogger(cfg),
		metrics: metrics.New(),
	}

	pepper, err := cryptox.LoadOrCreateSecret(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.pepper = pepper

	// Database first; persistent keys live in it.
	db, err := OpenStore(ctx, cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	keyManager, err := InitAuthKeys(ctx, cfg, app.db, app.logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initRedis(ctx); err != nil {
		app.close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// OpenStore connects to postgres when DATABASE_URL is a postgres URL and to
// the SQLite file otherwise, then applies migrations.
func OpenStore(ctx context.Context, cfg Config, logger *slog.Logger) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	if cfg.UsesPostgres() {
		db, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	} else {
		db, err = sqlite.NewStore("file:" + cfg.DatabaseFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	logger.Info("database migrations applied successfully", "dialect", db.Dialect())
	return db, nil
}

// NewPasswordHasher loads the pepper and returns the hasher used for
// account passwords.
func NewPasswordHasher(cfg Config) (*cryptox.PasswordHasher, error) {
	pepper, err := cryptox.LoadOrCreateSecret(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	return cryptox.NewPasswordHasher(pepper), nil
}

// initRedis wires the shared revocation cache and the audit stream. Without
// REDIS_URL revocations stay in process memory and audit events only go to
// the database.
func (app *Application) initRedis(ctx context.Context) error {
	if app.cfg.RedisURL == "" {
		app.revocations = revocation.NewMemoryCache()
		return nil
	}

	opts, err := redis.ParseURL(app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	app.redis = redis.NewClient(opts)

	cache := revocation.NewRedisCache(app.redis, revocation.DefaultRedisPrefix)
	if err := cache.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	app.revocations = cache

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: app.redis},
		watermill.NewSlogLogger(app.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create audit publisher: %w", err)
	}
	app.publisher = publisher

	app.logger.Info("redis enabled", "revocations", "redis", "audit_topic", app.cfg.AuditTopic)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	sinks := audit.MultiSink{audit.NewStoreSink(app.db)}
	if app.publisher != nil {
		sinks = append(sinks, audit.NewPublisherSink(app.publisher, app.cfg.AuditTopic))
	}
	app.audit = sinks

	app.tokenService = &service.TokenService{
		Keys:       app.keyManager,
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.AudienceList(),
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
		ClockSkew:  app.cfg.ClockSkew,
	}

	app.sessionManager = &service.SessionManager{
		Store:         app.db,
		HashKey:       app.pepper,
		DefaultTTL:    app.cfg.SessionTTL,
		RememberMeTTL: app.cfg.RememberMeTTL,
		Revocations:   app.revocations,
		RevocationTTL: app.tokenService.RevocationWindow(),
		Metrics:       app.metrics,
	}

	app.authService = &service.AuthService{
		Store:          app.db,
		Tokens:         app.tokenService,
		Sessions:       app.sessionManager,
		Hasher:         cryptox.NewPasswordHasher(app.pepper),
		Audit:          app.audit,
		Revocations:    app.revocations,
		RevokeOnReplay: app.cfg.RevokeOnReplay,
		Metrics:        app.metrics,
	}

	app.keyRotationService = &service.KeyRotationService{
		Keys:    app.keyManager,
		Audit:   app.audit,
		Metrics: app.metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.keyManager,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Audit = app.audit
	app.housekeepingService.Metrics = app.metrics
	if mem, ok := app.revocations.(*revocation.MemoryCache); ok {
		app.housekeepingService.Revocations = mem
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		app.db,
		app.metrics,
		BuildVersion,
		app.cfg.RequestTimeout,
		app.logger,
	)

	// Wire services to router
	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.KeyRotationService = app.keyRotationService
	router.Revocations = app.revocations
	router.AdminToken = app.cfg.AdminToken
	router.Limits = httpx.DefaultRateLimits().
		FromEnv(os.LookupEnv).
		WithRejectHook(func(name string) {
			app.metrics.RateLimited.WithLabelValues(name).Inc()
		})
	router.ApplyRoutes()

	if app.cfg.AdminToken == "" {
		app.logger.Info("admin key endpoints disabled (AUTH_ADMIN_TOKEN not set)")
	}

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.housekeepingService.Start(ctx)

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"alg", app.cfg.Algorithm,
		"keys", app.cfg.KeyStorageMode,
		"dialect", app.db.Dialect(),
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	}

	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Let an in-flight housekeeping run finish within the same deadline.
	if err := app.housekeepingService.Stop(ctx); err != nil {
		app.logger.Warn("housekeeping did not drain", "error", err)
	}

	if err := app.close(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// close releases connections. Safe on a partially built Application.
func (app *Application) close() error {
	var errs []error
	if app.publisher != nil {
		errs = append(errs, app.publisher.Close())
	}
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
