package domain

import (
	"encoding/json"
	"time"
)

type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityCritical AuditSeverity = "critical"
)

type AuditResult string

const (
	ResultSuccess AuditResult = "success"
	ResultFailure AuditResult = "failure"
)

// AuditEvent is an append-only security event. EventHash covers every
// other field plus PreviousEventHash, forming a tamper-evident chain.
type AuditEvent struct {
	ID                string
	Sequence          int64
	EventType         string
	Severity          AuditSeverity
	Result            AuditResult
	UserID            string
	SessionID         string
	Metadata          json.RawMessage
	Timestamp         time.Time
	EventHash         string
	PreviousEventHash string
}
