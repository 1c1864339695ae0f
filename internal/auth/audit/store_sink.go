package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

const (
	maxAppendAttempts = 5
	verifyPageSize    = 500
)

// ErrChainBroken is returned by Verify when a link does not match.
var ErrChainBroken = errors.New("audit: hash chain broken")

// StoreSink appends events to the audit_events table as a hash chain.
// Concurrent writers, including other processes, race on the chain head;
// the loser re-reads the head and tries again.
type StoreSink struct {
	store store.Store
	now   func() time.Time
}

var _ Sink = (*StoreSink)(nil)

func NewStoreSink(s store.Store) *StoreSink {
	return &StoreSink{store: s, now: time.Now}
}

func (s *StoreSink) Record(ctx context.Context, e Event) {
	if _, err := s.Append(ctx, e); err != nil {
		slogx.FromContext(ctx).Error("audit append failed",
			slog.String("event_type", e.Type),
			slog.Any("error", err),
		)
	}
}

// Append stores e as the next link of the chain and returns the stored row.
func (s *StoreSink) Append(ctx context.Context, e Event) (domain.AuditEvent, error) {
	e = e.withDefaults(s.now)

	metadata := []byte(`{}`)
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return domain.AuditEvent{}, fmt.Errorf("audit: encode metadata: %w", err)
		}
		metadata = b
	}

	repo := s.store.AuditEvents()
	for attempt := 1; ; attempt++ {
		seq, prev, err := repo.ChainHead(ctx)
		if err != nil {
			return domain.AuditEvent{}, fmt.Errorf("audit: read chain head: %w", err)
		}

		row := domain.AuditEvent{
			ID:                uuid.NewString(),
			Sequence:          seq + 1,
			EventType:         e.Type,
			Severity:          e.Severity,
			Result:            e.Result,
			UserID:            e.UserID,
			SessionID:         e.SessionID,
			Metadata:          metadata,
			Timestamp:         e.Timestamp,
			PreviousEventHash: prev,
		}
		if row.EventHash, err = ComputeHash(row); err != nil {
			return domain.AuditEvent{}, err
		}

		err = repo.AppendAuditEvent(ctx, row)
		switch {
		case err == nil:
			return row, nil
		case errors.Is(err, store.ErrConflict) && attempt < maxAppendAttempts:
			continue
		default:
			return domain.AuditEvent{}, fmt.Errorf("audit: append: %w", err)
		}
	}
}

// Verify walks the whole chain and returns the number of events checked.
// The first bad link is reported as ErrChainBroken with its sequence.
func (s *StoreSink) Verify(ctx context.Context) (int64, error) {
	var (
		after    int64
		prevHash string
		checked  int64
	)
	for {
		events, err := s.store.AuditEvents().ListAuditEvents(ctx, after, verifyPageSize)
		if err != nil {
			return checked, err
		}
		for _, e := range events {
			if e.Sequence != after+1 {
				return checked, fmt.Errorf("%w: gap before seq %d", ErrChainBroken, e.Sequence)
			}
			if e.PreviousEventHash != prevHash {
				return checked, fmt.Errorf("%w: seq %d does not link to its predecessor", ErrChainBroken, e.Sequence)
			}
			want, err := ComputeHash(e)
			if err != nil {
				return checked, err
			}
			if want != e.EventHash {
				return checked, fmt.Errorf("%w: seq %d was modified", ErrChainBroken, e.Sequence)
			}
			after, prevHash = e.Sequence, e.EventHash
			checked++
		}
		if len(events) < verifyPageSize {
			break
		}
	}

	headSeq, headHash, err := s.store.AuditEvents().ChainHead(ctx)
	if err != nil {
		return checked, err
	}
	if headSeq != after || headHash != prevHash {
		return checked, fmt.Errorf("%w: head does not match the last event", ErrChainBroken)
	}
	return checked, nil
}
