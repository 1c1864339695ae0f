package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/internal/auth/metrics"
	"github.com/aussiebroadwan/sessiond/internal/auth/revocation"
	"github.com/aussiebroadwan/sessiond/internal/auth/service"
	"github.com/aussiebroadwan/sessiond/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

const (
	testIssuer     = "sessiond-test"
	testPassword   = "pw123456"
	testAdminToken = "admin-secret"
)

var testAudience = []string{"portal"}

type testServer struct {
	t       *testing.T
	router  *Router
	keys    *jwtx.KeyManager
	users   *service.UserService
	metrics *metrics.Metrics

	// ips hands every login its own client address so the strict login
	// limit never trips inside a test.
	ips atomic.Int32
}

func newTestServer(t *testing.T, requestTimeout time.Duration) *testServer {
	t.Helper()

	s, err := sqlite.NewStore("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations(context.Background()))

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyOptions{
		Algorithm: jwtx.AlgorithmRS256,
		RSABits:   2048,
		Overlap:   time.Hour,
	})
	require.NoError(t, err)

	hasher := cryptox.NewPasswordHasher([]byte("test-pepper"))
	cache := revocation.NewMemoryCache()
	m := metrics.New()

	tokens := &service.TokenService{
		Keys:       keys,
		Issuer:     testIssuer,
		Audience:   testAudience,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	sessions := &service.SessionManager{
		Store:         s,
		HashKey:       []byte("test-pepper"),
		Revocations:   cache,
		RevocationTTL: tokens.RevocationWindow(),
		Metrics:       m,
	}

	logger := slog.New(slog.DiscardHandler)
	r := NewRouter(keys, s, m, "test", requestTimeout, logger)
	r.AuthService = &service.AuthService{
		Store:       s,
		Tokens:      tokens,
		Sessions:    sessions,
		Hasher:      hasher,
		Revocations: cache,
		Metrics:     m,
	}
	r.TokenService = tokens
	r.KeyRotationService = &service.KeyRotationService{Keys: keys, Metrics: m}
	r.Revocations = cache
	r.AdminToken = testAdminToken
	r.ApplyRoutes()

	return &testServer{
		t:       t,
		router:  r,
		keys:    keys,
		users:   &service.UserService{Store: s, Hasher: hasher},
		metrics: m,
	}
}

func (ts *testServer) createUser(email string) {
	ts.t.Helper()
	_, err := ts.users.CreateUser(context.Background(), service.NewUser{Email: email, Name: "Test User", Password: testPassword})
	require.NoError(ts.t, err)
}

type call struct {
	method string
	path   string
	body   any
	bearer string
	header map[string]string
}

func (ts *testServer) do(c call) *httptest.ResponseRecorder {
	ts.t.Helper()

	var body io.Reader = http.NoBody
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(ts.t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(email string) authsdk.LoginResponse {
	ts.t.Helper()

	n := ts.ips.Add(1)
	rec := ts.do(call{
		method: http.MethodPost,
		path:   "/auth/v2/login",
		body:   authsdk.LoginRequest{Email: email, Password: testPassword},
		header: map[string]string{"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", n)},
	})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())

	var out authsdk.LoginResponse
	decode(ts.t, rec, &out)
	return out
}

func (ts *testServer) refresh(token string) *httptest.ResponseRecorder {
	return ts.do(call{
		method: http.MethodPost,
		path:   "/auth/v2/refresh",
		body:   authsdk.RefreshRequest{RefreshToken: token},
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// requireError checks status, code and the reauth flag of an error body.
func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string, reauth bool) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())

	var body authsdk.ErrorResponse
	decode(t, rec, &body)
	require.Equal(t, code, body.Error)
	require.Equal(t, reauth, body.RequiresReauth)
	require.NotEmpty(t, body.ErrorDescription)
}
