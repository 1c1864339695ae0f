package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "auth-service"

var testAudience = []string{"portal"}

// fakeClock is a settable clock shared between a KeyManager and a Verifier.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func newSigner(t *testing.T, alg, kid string) jwtx.Signer {
	t.Helper()
	pemKey, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)
	s, err := jwtx.NewSigner(alg, kid, pemKey)
	require.NoError(t, err)
	return s
}

func newKeyManager(t *testing.T, clock *fakeClock) *jwtx.KeyManager {
	t.Helper()
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyOptions{
		Algorithm: jwtx.AlgorithmRS256,
		RSABits:   2048,
		Overlap:   time.Hour,
		Now:       clock.Now,
	})
	require.NoError(t, err)
	return km
}

func testSubject() jwtx.Subject {
	return jwtx.Subject{UserID: "user-1", Email: "u@example.com", Name: "U", SessionID: "sess-1"}
}
