package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/audit"
	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/internal/auth/metrics"
	"github.com/aussiebroadwan/sessiond/internal/auth/revocation"
	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

// Housekeeping defaults.
const (
	DefaultCleanupInterval   = time.Hour
	DefaultLargeBatchWarning = 1000
)

// CleanupReport summarises one housekeeping run.
type CleanupReport struct {
	SessionsDeleted  int64
	LargeBatch       bool
	KeysPurged       []string
	RevocationsSwept int
	StartedAt        time.Time
	Duration         time.Duration
}

// HousekeepingService periodically deletes expired sessions, purges
// signing keys past their overlap window and keeps the key table in sync
// with the database. It runs once on Start and then every Interval until
// Stop.
type HousekeepingService struct {
	Store    store.Store
	Keys     *jwtx.KeyManager // optional
	Logger   *slog.Logger
	Interval time.Duration

	// LargeBatch is the deleted-session count above which a run is
	// reported as anomalous.
	LargeBatch int64

	Audit       audit.Sink
	Metrics     *metrics.Metrics
	Revocations *revocation.MemoryCache // optional, swept each run
	Now         func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(s store.Store, keys *jwtx.KeyManager, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &HousekeepingService{
		Store:      s,
		Keys:       keys,
		Logger:     logger,
		Interval:   interval,
		LargeBatch: DefaultLargeBatchWarning,
	}
}

func (s *HousekeepingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Start launches the background worker. It is non-blocking; the first run
// happens immediately. The worker stops when ctx is cancelled or Stop is
// called.
func (s *HousekeepingService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doneCh != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.doneCh = make(chan struct{})
	go s.run(ctx, s.doneCh)
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop cancels the worker and waits for an in-flight run to finish, at
// most until ctx is done.
func (s *HousekeepingService) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.doneCh
	s.cancel, s.doneCh = nil, nil
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		s.Logger.Info("housekeeping service stopped")
		return nil
	case <-ctx.Done():
		s.Logger.Warn("housekeeping service did not stop in time")
		return ctx.Err()
	}
}

func (s *HousekeepingService) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.runLogged(ctx)
	for {
		select {
		case <-ticker.C:
			s.runLogged(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *HousekeepingService) runLogged(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.Logger.Error("housekeeping run failed", "error", err)
	}
}

// RunOnce performs one cleanup pass. Steps are independent; a failure in
// one does not skip the others, and the first error is returned.
func (s *HousekeepingService) RunOnce(ctx context.Context) (CleanupReport, error) {
	report := CleanupReport{StartedAt: s.now()}
	var errs []error

	deleted, err := s.Store.Sessions().DeleteExpiredSessions(ctx, report.StartedAt)
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
		errs = append(errs, err)
	} else {
		report.SessionsDeleted = deleted
		s.reportSessions(ctx, &report)
	}

	if s.Keys != nil {
		purged, err := s.Keys.Purge(ctx)
		if err != nil {
			s.Logger.Error("failed to purge signing keys", "error", err)
			errs = append(errs, err)
		}
		report.KeysPurged = purged
		if len(purged) > 0 {
			s.Logger.Info("purged retired signing keys", "kids", purged)
			s.record(ctx, audit.Event{
				Type:     audit.EventKeyPurged,
				Metadata: map[string]any{"kids": purged},
			})
		}

		if s.Keys.Persistent() {
			if err := s.Keys.Sync(ctx); err != nil {
				s.Logger.Error("failed to sync signing keys", "error", err)
				errs = append(errs, err)
			}
		}
	}

	if s.Revocations != nil {
		report.RevocationsSwept = s.Revocations.Sweep()
	}

	report.Duration = s.now().Sub(report.StartedAt)
	err = errors.Join(errs...)
	if s.Metrics != nil {
		s.Metrics.CleanupRuns.WithLabelValues(metrics.Result(err)).Inc()
		s.Metrics.CleanupDeleted.Add(float64(report.SessionsDeleted))
	}
	s.Logger.Info("housekeeping cleanup completed",
		"sessions_deleted", report.SessionsDeleted,
		"keys_purged", len(report.KeysPurged),
		"revocations_swept", report.RevocationsSwept,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, err
}

func (s *HousekeepingService) reportSessions(ctx context.Context, report *CleanupReport) {
	threshold := s.LargeBatch
	if threshold <= 0 {
		threshold = DefaultLargeBatchWarning
	}
	if report.SessionsDeleted <= threshold {
		if report.SessionsDeleted > 0 {
			s.Logger.Debug("deleted expired sessions", "count", report.SessionsDeleted)
		}
		return
	}

	report.LargeBatch = true
	s.Logger.Warn("unusually large expired session batch",
		"count", report.SessionsDeleted,
		"threshold", threshold,
	)
	s.record(ctx, audit.Event{
		Type:     audit.EventCleanupLargeBatch,
		Severity: domain.SeverityWarning,
		Metadata: map[string]any{"count": report.SessionsDeleted, "threshold": threshold},
	})
}

func (s *HousekeepingService) record(ctx context.Context, e audit.Event) {
	if s.Audit != nil {
		s.Audit.Record(ctx, e)
	}
}
