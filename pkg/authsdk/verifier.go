package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

// VerifierOptions configures a JWKSVerifier.
type VerifierOptions struct {
	Issuer   string
	Audience string        // optional
	Leeway   time.Duration // clock skew tolerance, default 60s

	// RefreshInterval re-downloads the key set in the background. Unknown
	// kids always trigger a rate-limited refresh, so rotations are picked
	// up without waiting for it.
	RefreshInterval time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// JWKSVerifier checks access tokens locally against the service's
// published key set. Other services use it to authenticate requests
// without calling the auth service. It does not know about revoked
// sessions; tokens stay valid until they expire.
type JWKSVerifier struct {
	jwks   *keyfunc.JWKS
	parser *jwt.Parser
}

// NewJWKSVerifier downloads the key set from jwksURL and keeps it fresh.
// Call Close to stop the background refresh.
func NewJWKSVerifier(jwksURL string, opts VerifierOptions) (*JWKSVerifier, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.RefreshInterval
	if interval <= 0 {
		interval = time.Hour
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Client: opts.HTTPClient,
		RefreshErrorHandler: func(err error) {
			logger.Warn("failed to refresh JWKS", "url", jwksURL, "err", err)
		},
		RefreshInterval:   interval,
		RefreshRateLimit:  time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}
	return newJWKSVerifier(jwks, opts), nil
}

// NewJWKSVerifierFromJSON builds a verifier over a fixed key set.
func NewJWKSVerifierFromJSON(raw json.RawMessage, opts VerifierOptions) (*JWKSVerifier, error) {
	jwks, err := keyfunc.NewJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return newJWKSVerifier(jwks, opts), nil
}

func newJWKSVerifier(jwks *keyfunc.JWKS, opts VerifierOptions) *JWKSVerifier {
	leeway := opts.Leeway
	if leeway <= 0 {
		leeway = 60 * time.Second
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(jwtx.SupportedAlgorithms()),
		jwt.WithLeeway(leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}
	return &JWKSVerifier{jwks: jwks, parser: jwt.NewParser(parserOpts...)}
}

// Verify checks signature, issuer, audience and expiry of an access token.
// Refresh tokens are rejected.
func (v *JWKSVerifier) Verify(token string) (*jwtx.Claims, error) {
	claims := &jwtx.Claims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.jwks.Keyfunc); err != nil {
		return nil, fmt.Errorf("%w: %w", classifyVerifyError(err), err)
	}
	if claims.Type != jwtx.TokenTypeAccess {
		return nil, jwtx.ErrTokenType
	}
	return claims, nil
}

// KIDs lists the key ids currently known to the verifier.
func (v *JWKSVerifier) KIDs() []string {
	return v.jwks.KIDs()
}

// Close stops the background refresh.
func (v *JWKSVerifier) Close() {
	v.jwks.EndBackground()
}

func classifyVerifyError(err error) error {
	switch {
	case errors.Is(err, keyfunc.ErrKIDNotFound):
		return jwtx.ErrUnknownKID
	case errors.Is(err, jwt.ErrTokenExpired):
		return jwtx.ErrExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return jwtx.ErrMalformed
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return jwtx.ErrIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return jwtx.ErrAudience
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return jwtx.ErrInvalidSig
	default:
		return jwtx.ErrInvalidClaim
	}
}
