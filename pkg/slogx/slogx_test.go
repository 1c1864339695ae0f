package slogx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	return New(Config{Service: "test", Level: "debug", Output: &buf}), &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &m))
	return m
}

func TestRedactsCredentials(t *testing.T) {
	logger, buf := newBufferLogger(t)

	logger.Info("login", "email", "u@example.com", "password", "pw123456", "Refresh_Token", "abc")

	line := lastLine(t, buf)
	require.Equal(t, "u@example.com", line["email"])
	require.Equal(t, Redacted, line["password"])
	require.Equal(t, Redacted, line["Refresh_Token"])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestHTTPMiddleware(t *testing.T) {
	logger, buf := newBufferLogger(t)

	var fromCtx *slog.Logger
	h := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = FromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))

	t.Run("generates request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		id := rec.Header().Get(RequestIDHeader)
		require.Len(t, id, 26)
		require.NotSame(t, logger, fromCtx)

		line := lastLine(t, buf)
		require.Equal(t, "WARN", line["level"])
		require.Equal(t, id, line["req_id"])
		require.EqualValues(t, 404, line["status"])
		require.EqualValues(t, 4, line["bytes"])
	})

	t.Run("echoes client request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(RequestIDHeader, "trace-123")
		h.ServeHTTP(rec, req)

		require.Equal(t, "trace-123", rec.Header().Get(RequestIDHeader))
		require.Equal(t, "trace-123", lastLine(t, buf)["req_id"])
	})
}

func TestWithExtendsContextLogger(t *testing.T) {
	logger, buf := newBufferLogger(t)

	ctx := With(WithContext(context.Background(), logger), "user_id", "u1")
	FromContext(ctx).Info("hello")

	require.Equal(t, "u1", lastLine(t, buf)["user_id"])
}
