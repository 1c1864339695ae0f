package jwtx

import (
	"crypto/rsa"
	"errors"

	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// RSASigner signs tokens with an RSA private key using either PKCS#1 v1.5
// (RS256) or PSS (PS256) padding.
type RSASigner struct {
	kid    string
	method jwt.SigningMethod
	key    *rsa.PrivateKey
}

func newRSASigner(method jwt.SigningMethod, kid string, pemKey []byte) (*RSASigner, error) {
	if kid == "" {
		return nil, errors.New("jwtx: signer requires a kid")
	}
	key, err := cryptox.ParseRSAPrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	return &RSASigner{kid: kid, method: method, key: key}, nil
}

func (s *RSASigner) Alg() string               { return s.method.Alg() }
func (s *RSASigner) KID() string               { return s.kid }
func (s *RSASigner) PublicKey() *rsa.PublicKey { return &s.key.PublicKey }

// Sign turns claims into a compact JWT with kid and alg in the header.
func (s *RSASigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// PublicJWK returns the public half for inclusion in a JWKS.
func (s *RSASigner) PublicJWK() JWK {
	return NewRSAJWK(s.kid, "sig", s.Alg(), &s.key.PublicKey)
}
