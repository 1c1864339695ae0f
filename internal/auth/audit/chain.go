package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
)

// canonicalEvent fixes field order for hashing. Metadata is already
// canonical because encoding/json sorts map keys.
type canonicalEvent struct {
	ID        string          `json:"id"`
	Sequence  int64           `json:"seq"`
	EventType string          `json:"eventType"`
	Severity  string          `json:"severity"`
	Result    string          `json:"result"`
	UserID    string          `json:"userId"`
	SessionID string          `json:"sessionId"`
	Metadata  json.RawMessage `json:"metadata"`
	Timestamp string          `json:"timestamp"`
}

// ComputeHash returns hex(SHA-256(previousEventHash || canonical JSON)).
func ComputeHash(e domain.AuditEvent) (string, error) {
	metadata := e.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage(`{}`)
	}
	body, err := json.Marshal(canonicalEvent{
		ID:        e.ID,
		Sequence:  e.Sequence,
		EventType: e.EventType,
		Severity:  string(e.Severity),
		Result:    string(e.Result),
		UserID:    e.UserID,
		SessionID: e.SessionID,
		Metadata:  metadata,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(e.PreviousEventHash))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}
