package jwtx

import (
	"crypto/rsa"
	"slices"
	"sync"
)

// VerificationKey is the public half of a signing key together with the
// algorithm it was created for.
type VerificationKey struct {
	KID       string
	Algorithm string
	PublicKey *rsa.PublicKey
}

// KeySet holds the public verification keys indexed by kid, in insertion
// order, and renders them as a JWKS.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]VerificationKey
	kids []string
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]VerificationKey)}
}

// Add registers a verification key, replacing any previous key with the
// same kid.
func (k *KeySet) Add(vk VerificationKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[vk.KID]; !ok {
		k.kids = append(k.kids, vk.KID)
	}
	k.keys[vk.KID] = vk
}

// AddJWK parses and registers a published JWK.
func (k *KeySet) AddJWK(j JWK) error {
	pub, err := j.RSAPublicKey()
	if err != nil {
		return err
	}
	if !IsSupportedAlgorithm(j.Alg) {
		return ErrUnsupportedAlg
	}
	k.Add(VerificationKey{KID: j.Kid, Algorithm: j.Alg, PublicKey: pub})
	return nil
}

// Remove drops kid from the set. Removing an unknown kid is a no-op.
func (k *KeySet) Remove(kid string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[kid]; !ok {
		return
	}
	delete(k.keys, kid)
	k.kids = slices.DeleteFunc(k.kids, func(s string) bool { return s == kid })
}

// Get returns the key for kid or ErrUnknownKID.
func (k *KeySet) Get(kid string) (VerificationKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	vk, ok := k.keys[kid]
	if !ok {
		return VerificationKey{}, ErrUnknownKID
	}
	return vk, nil
}

// Len returns the number of keys in the set.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.kids)
}

// PublicJWKS renders a snapshot of the set. It never contains private
// material.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := JWKS{Keys: make([]JWK, 0, len(k.kids))}
	for _, kid := range k.kids {
		vk := k.keys[kid]
		out.Keys = append(out.Keys, NewRSAJWK(vk.KID, "sig", vk.Algorithm, vk.PublicKey))
	}
	return out
}
