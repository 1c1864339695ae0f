package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/internal/auth/audit"
	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/internal/auth/metrics"
	"github.com/aussiebroadwan/sessiond/internal/auth/revocation"
	"github.com/aussiebroadwan/sessiond/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessiond/internal/auth/store/sqlstore"
	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

const (
	testEmail    = "u@example.com"
	testPassword = "pw123456"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingSink) Record(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	clock       *testClock
	store       *sqlstore.Store
	keys        *jwtx.KeyManager
	tokens      *TokenService
	sessions    *SessionManager
	auth        *AuthService
	users       *UserService
	sink        *recordingSink
	revocations *revocation.MemoryCache
	metrics     *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newTestClock()
	s, err := sqlite.NewStore("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations(context.Background()))

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyOptions{
		Algorithm: jwtx.AlgorithmRS256,
		RSABits:   2048,
		Overlap:   time.Hour,
		Now:       clock.Now,
	})
	require.NoError(t, err)

	hasher := cryptox.NewPasswordHasher([]byte("test-pepper"))
	sink := &recordingSink{}
	cache := revocation.NewMemoryCacheWithClock(clock.Now)
	m := metrics.New()

	tokens := &TokenService{
		Keys:       keys,
		Issuer:     "sessiond-test",
		Audience:   []string{"portal"},
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        clock.Now,
	}
	sessions := &SessionManager{
		Store:         s,
		HashKey:       []byte("test-pepper"),
		Revocations:   cache,
		RevocationTTL: tokens.RevocationWindow(),
		Metrics:       m,
		Now:           clock.Now,
	}

	return &testEnv{
		clock:    clock,
		store:    s,
		keys:     keys,
		tokens:   tokens,
		sessions: sessions,
		auth: &AuthService{
			Store:       s,
			Tokens:      tokens,
			Sessions:    sessions,
			Hasher:      hasher,
			Audit:       sink,
			Revocations: cache,
			Metrics:     m,
		},
		users:       &UserService{Store: s, Hasher: hasher, Now: clock.Now},
		sink:        sink,
		revocations: cache,
		metrics:     m,
	}
}

func (e *testEnv) createUser(t *testing.T, email string) domain.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), NewUser{Email: email, Name: "Test User", Password: testPassword})
	require.NoError(t, err)
	return u
}

func (e *testEnv) login(t *testing.T, email string) LoginResult {
	t.Helper()
	res, err := e.auth.Login(context.Background(), LoginRequest{
		Email:    email,
		Password: testPassword,
		Client:   domain.ClientMetadata{IPAddress: "203.0.113.7", UserAgent: "go-test"},
	})
	require.NoError(t, err)
	return res
}
