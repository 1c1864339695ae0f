package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultLeeway is the clock skew tolerated when checking exp and iat.
const DefaultLeeway = 60 * time.Second

var (
	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrMissingKID     = errors.New("jwtx: missing kid header")
	ErrUnsupportedAlg = errors.New("jwtx: unsupported algorithm")
	ErrAlgMismatch    = errors.New("jwtx: algorithm does not match key")
	ErrUnknownKID     = errors.New("jwtx: unknown kid")
	ErrInvalidSig     = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrTokenType    = errors.New("jwtx: wrong token type")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// KeyResolver resolves a kid to its verification key. KeyManager and
// KeySet both satisfy it.
type KeyResolver interface {
	VerificationKey(kid string) (VerificationKey, error)
}

// VerificationKey lets a bare KeySet act as a KeyResolver.
func (k *KeySet) VerificationKey(kid string) (VerificationKey, error) { return k.Get(kid) }

// VerifyOptions captures the expectations applied to every token.
type VerifyOptions struct {
	// Issuer the token must carry. Empty disables the check.
	Issuer string

	// Audience values of which at least one must be present. Empty disables
	// the check.
	Audience []string

	// Leeway tolerated on exp and iat. Zero means DefaultLeeway; use a
	// negative value to disable.
	Leeway time.Duration

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Verifier validates tokens against a KeyResolver.
type Verifier struct {
	keys KeyResolver
	opts VerifyOptions
}

// NewVerifier creates a Verifier.
func NewVerifier(keys KeyResolver, opts VerifyOptions) *Verifier {
	switch {
	case opts.Leeway == 0:
		opts.Leeway = DefaultLeeway
	case opts.Leeway < 0:
		opts.Leeway = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Verifier{keys: keys, opts: opts}
}

// Verify checks a token of the wanted type. The header is inspected first,
// without trusting it, so that a missing kid, a disallowed algorithm or a
// kid outside the verification set are reported as such rather than as a
// generic signature failure.
func (v *Verifier) Verify(tokenStr string, want TokenType) (*Claims, error) {
	// ParseUnverified also rejects algorithms jwt does not know; the header
	// is still populated in that case and is all we need here.
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenStr, &Claims{})
	if unverified == nil || unverified.Header == nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, ErrMissingKID
	}
	alg, _ := unverified.Header["alg"].(string)
	if !IsSupportedAlgorithm(alg) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}

	vk, err := v.keys.VerificationKey(kid)
	if errors.Is(err, ErrUnknownKID) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
	}
	if err != nil {
		return nil, fmt.Errorf("jwtx: resolve key %q: %w", kid, err)
	}
	if vk.Algorithm != alg {
		return nil, fmt.Errorf("%w: header %s, key %s", ErrAlgMismatch, alg, vk.Algorithm)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{vk.Algorithm}),
		jwt.WithLeeway(v.opts.Leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.opts.Now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return vk.PublicKey, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !token.Valid {
		return nil, ErrInvalidClaim
	}

	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateAudience(v.opts.Audience); err != nil {
		return nil, err
	}
	if err := claims.ValidateShape(want); err != nil {
		return nil, err
	}

	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return fmt.Errorf("%w: %w", ErrNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidClaim, err)
	}
}
