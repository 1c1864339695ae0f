package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessiond/internal/auth/store/sqlstore"
)

func newSQLiteStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlite.NewStore("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations(context.Background()))
	return s
}

func TestStoreSinkAppendLinksEvents(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	sink := NewStoreSink(s)
	sink.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 123456789, time.UTC) }

	first, err := sink.Append(ctx, Event{Type: EventLoginSucceeded, UserID: "u1", SessionID: "s1", Metadata: map[string]any{"b": 2, "a": "x"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Sequence)
	assert.Empty(t, first.PreviousEventHash)
	assert.Equal(t, domain.SeverityInfo, first.Severity)
	assert.Equal(t, domain.ResultSuccess, first.Result)
	assert.JSONEq(t, `{"a":"x","b":2}`, string(first.Metadata))
	assert.Equal(t, 123000000, first.Timestamp.Nanosecond(), "truncated to millis")

	second, err := sink.Append(ctx, Event{Type: EventLoginFailed, Severity: domain.SeverityWarning, Result: domain.ResultFailure})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Sequence)
	assert.Equal(t, first.EventHash, second.PreviousEventHash)
	assert.NotEqual(t, first.EventHash, second.EventHash)

	n, err := sink.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStoreSinkVerifyDetectsTampering(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	sink := NewStoreSink(s)

	for i := 0; i < 3; i++ {
		_, err := sink.Append(ctx, Event{Type: EventRefreshSucceeded, UserID: "u1"})
		require.NoError(t, err)
	}

	_, err := s.DB().ExecContext(ctx, `UPDATE audit_events SET user_id = 'mallory' WHERE seq = 2`)
	require.NoError(t, err)

	n, err := sink.Verify(ctx)
	require.ErrorIs(t, err, ErrChainBroken)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, err.Error(), "seq 2")
}

func TestStoreSinkConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	sink := NewStoreSink(s)

	const writers = 4
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sink.Append(ctx, Event{Type: EventSessionRevoked})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := sink.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), n)
}

func TestComputeHashDependsOnEveryField(t *testing.T) {
	base := domain.AuditEvent{
		ID: "id", Sequence: 1, EventType: "t", Severity: domain.SeverityInfo, Result: domain.ResultSuccess,
		UserID: "u", SessionID: "s", Metadata: []byte(`{"k":1}`), Timestamp: time.Unix(100, 0),
	}
	h, err := ComputeHash(base)
	require.NoError(t, err)

	variants := []func(e *domain.AuditEvent){
		func(e *domain.AuditEvent) { e.ID = "other" },
		func(e *domain.AuditEvent) { e.Sequence = 2 },
		func(e *domain.AuditEvent) { e.Result = domain.ResultFailure },
		func(e *domain.AuditEvent) { e.SessionID = "x" },
		func(e *domain.AuditEvent) { e.Metadata = []byte(`{"k":2}`) },
		func(e *domain.AuditEvent) { e.Timestamp = e.Timestamp.Add(time.Millisecond) },
		func(e *domain.AuditEvent) { e.PreviousEventHash = "abc" },
	}
	for _, mutate := range variants {
		e := base
		mutate(&e)
		got, err := ComputeHash(e)
		require.NoError(t, err)
		assert.NotEqual(t, h, got)
	}
}
