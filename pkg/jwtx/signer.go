package jwtx

import (
	"crypto/rsa"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Supported JWT signing algorithms. Only asymmetric RSA schemes are
// accepted; there is no shared-secret mode.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmPS256 = "PS256"
)

var supportedAlgorithms = []string{AlgorithmRS256, AlgorithmPS256}

// SupportedAlgorithms returns the signing algorithm allow-list.
func SupportedAlgorithms() []string { return slices.Clone(supportedAlgorithms) }

// IsSupportedAlgorithm reports whether alg is on the allow-list.
func IsSupportedAlgorithm(alg string) bool { return slices.Contains(supportedAlgorithms, alg) }

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicKey() *rsa.PublicKey
	PublicJWK() JWK
}

// NewSigner creates a signer for alg from PEM bytes (PKCS1 or PKCS8).
func NewSigner(alg, kid string, pemKey []byte) (Signer, error) {
	method, err := signingMethod(alg)
	if err != nil {
		return nil, err
	}
	return newRSASigner(method, kid, pemKey)
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case AlgorithmRS256:
		return jwt.SigningMethodRS256, nil
	case AlgorithmPS256:
		return jwt.SigningMethodPS256, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}
}
