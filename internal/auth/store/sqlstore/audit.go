package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/internal/auth/store"
)

type auditRepo struct{ conn }

func (r *auditRepo) ChainHead(ctx context.Context) (int64, string, error) {
	var (
		seq  int64
		hash string
	)
	err := r.queryRow(ctx, `SELECT seq, last_hash FROM audit_chain_head WHERE id = 1`).Scan(&seq, &hash)
	return seq, hash, mapNotFound(err)
}

func (r *auditRepo) AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error {
	return r.atomic(ctx, func(c conn) error {
		moved, err := affected(c.exec(ctx, `UPDATE audit_chain_head SET seq = ?, last_hash = ?
			WHERE id = 1 AND seq = ? AND last_hash = ?`,
			e.Sequence, e.EventHash, e.Sequence-1, e.PreviousEventHash))
		if err != nil {
			return err
		}
		if !moved {
			return store.ErrConflict
		}

		metadata := string(e.Metadata)
		if metadata == "" {
			metadata = "{}"
		}
		_, err = c.exec(ctx, `INSERT INTO audit_events
			(id, seq, event_type, severity, result, user_id, session_id, metadata, occurred_at, event_hash, previous_event_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Sequence, e.EventType, string(e.Severity), string(e.Result), e.UserID, e.SessionID,
			metadata, toMillis(e.Timestamp), e.EventHash, e.PreviousEventHash)
		if c.dialect.IsUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	})
}

func (r *auditRepo) ListAuditEvents(ctx context.Context, afterSeq int64, limit int) ([]domain.AuditEvent, error) {
	rows, err := r.query(ctx, `SELECT id, seq, event_type, severity, result, user_id, session_id, metadata,
			occurred_at, event_hash, previous_event_hash
		FROM audit_events WHERE seq > ? ORDER BY seq LIMIT ?`, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEvent
	for rows.Next() {
		var (
			e          domain.AuditEvent
			severity   string
			result     string
			metadata   string
			occurredAt int64
		)
		if err := rows.Scan(&e.ID, &e.Sequence, &e.EventType, &severity, &result, &e.UserID, &e.SessionID,
			&metadata, &occurredAt, &e.EventHash, &e.PreviousEventHash); err != nil {
			return nil, err
		}
		e.Severity = domain.AuditSeverity(severity)
		e.Result = domain.AuditResult(result)
		e.Metadata = []byte(metadata)
		e.Timestamp = time.UnixMilli(occurredAt).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
