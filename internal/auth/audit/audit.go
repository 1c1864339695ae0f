// Package audit records security events. Recording is best effort:
// sinks log their own failures and never report them to the caller, so an
// audit outage cannot change the outcome of a login or refresh.
package audit

import (
	"context"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
)

// Event types emitted by the service.
const (
	EventLoginSucceeded    = "auth.login.success"
	EventLoginFailed       = "auth.login.failure"
	EventRefreshSucceeded  = "auth.refresh.success"
	EventRefreshRejected   = "auth.refresh.failure"
	EventRefreshReplay     = "auth.refresh.replay"
	EventLogout            = "auth.logout"
	EventSessionRevoked    = "session.revoked"
	EventCleanupCompleted  = "session.cleanup.completed"
	EventCleanupLargeBatch = "session.cleanup.large_batch"
	EventKeyRotated        = "key.rotated"
	EventKeyPurged         = "key.purged"
)

// Event is what producers hand to a Sink.
type Event struct {
	Type      string
	Severity  domain.AuditSeverity
	Result    domain.AuditResult
	UserID    string
	SessionID string
	Metadata  map[string]any
	Timestamp time.Time // zero means now
}

// Sink receives events.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) Record(context.Context, Event) {}

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, e Event) {
	for _, s := range m {
		s.Record(ctx, e)
	}
}

func (e Event) withDefaults(now func() time.Time) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = now()
	}
	// Stored with millisecond precision; hash what is stored.
	e.Timestamp = e.Timestamp.UTC().Truncate(time.Millisecond)
	if e.Severity == "" {
		e.Severity = domain.SeverityInfo
	}
	if e.Result == "" {
		e.Result = domain.ResultSuccess
	}
	return e
}
