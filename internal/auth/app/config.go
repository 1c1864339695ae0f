package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

// Key storage modes.
const (
	KeyStorageEphemeral  = "ephemeral"
	KeyStoragePersistent = "persistent"
)

type Config struct {
	Issuer   string `mapstructure:"AUTH_ISSUER"`   // issuer claim for tokens (default: sessiond)
	Audience string `mapstructure:"AUTH_AUDIENCE"` // comma separated audience list, empty disables the check

	Algorithm      string        `mapstructure:"AUTH_ALGORITHM"`        // RS256 or PS256 (default: RS256)
	RSABits        int           `mapstructure:"AUTH_RSA_BITS"`         // RSA key size (default: 3072)
	KeyStorageMode string        `mapstructure:"AUTH_KEY_STORAGE_MODE"` // ephemeral or persistent (default: ephemeral)
	KeyOverlap     time.Duration `mapstructure:"AUTH_KEY_OVERLAP"`      // how long a retired key still verifies (default: 30 days)
	MasterKeyFile  string        `mapstructure:"AUTH_MASTER_KEY_FILE"`  // seals persistent private keys (default: ./master.key)
	PepperFile     string        `mapstructure:"AUTH_PEPPER_FILE"`      // password and fingerprint pepper (default: ./pepper)

	AccessTTL      time.Duration `mapstructure:"AUTH_ACCESS_TTL"`       // default: 15m
	RefreshTTL     time.Duration `mapstructure:"AUTH_REFRESH_TTL"`      // default: 7 days
	SessionTTL     time.Duration `mapstructure:"AUTH_SESSION_TTL"`      // default: 24h
	RememberMeTTL  time.Duration `mapstructure:"AUTH_REMEMBER_ME_TTL"`  // default: 7 days
	ClockSkew      time.Duration `mapstructure:"AUTH_CLOCK_SKEW"`       // leeway on exp/nbf/iat (default: 60s)
	RequestTimeout time.Duration `mapstructure:"AUTH_REQUEST_TIMEOUT"`  // per request deadline (default: 5s)
	RevokeOnReplay bool          `mapstructure:"AUTH_REVOKE_ON_REPLAY"` // end the session when a spent refresh token is replayed
	AdminToken     string        `mapstructure:"AUTH_ADMIN_TOKEN"`      // enables the key endpoints when set
	AuditTopic     string        `mapstructure:"AUTH_AUDIT_TOPIC"`      // redis stream for audit events (default: auth.audit)

	DatabaseURL  string `mapstructure:"DATABASE_URL"`       // postgres DSN; empty selects SQLite
	DatabaseFile string `mapstructure:"AUTH_DATABASE_FILE"` // SQLite file (default: ./auth.db)
	RedisURL     string `mapstructure:"REDIS_URL"`          // shared revocation cache and audit stream, optional

	Env                  string        `mapstructure:"ENV"`                   // dev, staging, prod (default: dev)
	LogLevel             string        `mapstructure:"LOG_LEVEL"`             // debug, info, warn, error (default: info)
	LogFormat            string        `mapstructure:"LOG_FORMAT"`            // json, text (default: json)
	Port                 int           `mapstructure:"PORT"`                  // default: 8080
	ShutdownGracePeriod  time.Duration `mapstructure:"SHUTDOWN_GRACE_PERIOD"` // default: 10s
	HousekeepingInterval time.Duration `mapstructure:"HOUSEKEEPING_INTERVAL"` // default: 1h
}

// LoadConfig reads .env (if present) and the environment. Environment
// variables win over .env.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("AUTH_ISSUER", "sessiond")
	v.SetDefault("AUTH_AUDIENCE", "")
	v.SetDefault("AUTH_ALGORITHM", jwtx.AlgorithmRS256)
	v.SetDefault("AUTH_RSA_BITS", jwtx.DefaultRSABits)
	v.SetDefault("AUTH_KEY_STORAGE_MODE", KeyStorageEphemeral)
	v.SetDefault("AUTH_KEY_OVERLAP", jwtx.DefaultKeyOverlap)
	v.SetDefault("AUTH_MASTER_KEY_FILE", "master.key")
	v.SetDefault("AUTH_PEPPER_FILE", "pepper")
	v.SetDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL)
	v.SetDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL)
	v.SetDefault("AUTH_SESSION_TTL", 24*time.Hour)
	v.SetDefault("AUTH_REMEMBER_ME_TTL", 7*24*time.Hour)
	v.SetDefault("AUTH_CLOCK_SKEW", jwtx.DefaultLeeway)
	v.SetDefault("AUTH_REQUEST_TIMEOUT", httpx.DefaultRequestTimeout)
	v.SetDefault("AUTH_REVOKE_ON_REPLAY", false)
	v.SetDefault("AUTH_ADMIN_TOKEN", "")
	v.SetDefault("AUTH_AUDIT_TOPIC", "auth.audit")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTH_DATABASE_FILE", "auth.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("PORT", 8080)
	v.SetDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second)
	v.SetDefault("HOUSEKEEPING_INTERVAL", time.Hour)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New("config: "+msg))
		}
	}

	check(strings.TrimSpace(c.Issuer) != "", "AUTH_ISSUER must be set")
	check(jwtx.IsSupportedAlgorithm(c.Algorithm), "AUTH_ALGORITHM must be RS256 or PS256")
	check(c.KeyStorageMode == KeyStorageEphemeral || c.KeyStorageMode == KeyStoragePersistent,
		"AUTH_KEY_STORAGE_MODE must be ephemeral or persistent")
	check(c.KeyStorageMode != KeyStoragePersistent || c.MasterKeyFile != "",
		"AUTH_MASTER_KEY_FILE is required for persistent keys")
	check(c.PepperFile != "", "AUTH_PEPPER_FILE must be set")
	check(c.KeyOverlap > 0, "AUTH_KEY_OVERLAP must be positive")
	check(c.AccessTTL > 0, "AUTH_ACCESS_TTL must be positive")
	check(c.AccessTTL < c.RefreshTTL, "AUTH_ACCESS_TTL must be shorter than AUTH_REFRESH_TTL")
	check(c.SessionTTL > 0 && c.RememberMeTTL > 0, "session TTLs must be positive")
	check(c.ClockSkew > 0, "AUTH_CLOCK_SKEW must be positive")
	check(c.RequestTimeout > 0, "AUTH_REQUEST_TIMEOUT must be positive")
	check(c.Port > 0 && c.Port < 65536, "PORT must be between 1 and 65535")
	check(c.ShutdownGracePeriod > 0, "SHUTDOWN_GRACE_PERIOD must be positive")
	check(c.HousekeepingInterval > 0, "HOUSEKEEPING_INTERVAL must be positive")

	return errors.Join(errs...)
}

// AudienceList splits Audience on commas.
func (c Config) AudienceList() []string {
	var out []string
	for _, p := range strings.Split(c.Audience, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// UsesPostgres reports whether DatabaseURL selects the postgres driver.
func (c Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}
