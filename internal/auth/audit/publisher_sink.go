package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// DefaultTopic is where PublisherSink sends events.
const DefaultTopic = "auth.audit"

// PublishedEvent is the message payload.
type PublishedEvent struct {
	Type      string         `json:"eventType"`
	Severity  string         `json:"severity"`
	Result    string         `json:"result"`
	UserID    string         `json:"userId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// PublisherSink forwards events to a watermill publisher so other
// services (SIEM, alerting) can consume them.
type PublisherSink struct {
	publisher message.Publisher
	topic     string
	now       func() time.Time
}

var _ Sink = (*PublisherSink)(nil)

func NewPublisherSink(publisher message.Publisher, topic string) *PublisherSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &PublisherSink{publisher: publisher, topic: topic, now: time.Now}
}

func (p *PublisherSink) Record(ctx context.Context, e Event) {
	if err := p.Publish(ctx, e); err != nil {
		slogx.FromContext(ctx).Error("audit publish failed",
			slog.String("event_type", e.Type),
			slog.String("topic", p.topic),
			slog.Any("error", err),
		)
	}
}

func (p *PublisherSink) Publish(ctx context.Context, e Event) error {
	e = e.withDefaults(p.now)

	payload, err := json.Marshal(PublishedEvent{
		Type:      e.Type,
		Severity:  string(e.Severity),
		Result:    string(e.Result),
		UserID:    e.UserID,
		SessionID: e.SessionID,
		Metadata:  e.Metadata,
		Timestamp: e.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", e.Type)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
