// Package events publishes notification and audit records to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loan-settlement-engine/internal/domain/notify"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the slice of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Topics struct {
	Notifications string
	Audit         string
}

// Publisher implements notify.Notifier and notify.Auditor over one writer;
// the topic is set per message.
type Publisher struct {
	w       MessageWriter
	topics  Topics
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
}

var (
	_ notify.Notifier = (*Publisher)(nil)
	_ notify.Auditor  = (*Publisher)(nil)
)

func NewPublisher(w MessageWriter, topics Topics, timeout time.Duration, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{w: w, topics: topics, timeout: timeout, log: log, now: time.Now}
}

// NewWriter builds a synchronous writer: callers want to know a publish failed
// so they can log it against the transition.
func NewWriter(brokers []string, log *zap.Logger) *kafka.Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Warn(fmt.Sprintf(msg, args...))
		}),
	}
}

type notification struct {
	Event      notify.Event   `json:"event"`
	Recipient  string         `json:"recipient"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type auditRecord struct {
	EventType   string         `json:"event_type"`
	ActorID     string         `json:"actor_id"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

func (p *Publisher) Send(ctx context.Context, event notify.Event, recipient string, payload map[string]any) error {
	v, err := json.Marshal(notification{Event: event, Recipient: recipient, Payload: payload, OccurredAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return p.write(ctx, kafka.Message{
		Topic:   p.topics.Notifications,
		Key:     []byte(recipient),
		Value:   v,
		Headers: []kafka.Header{{Key: "event", Value: []byte(event)}},
	})
}

func (p *Publisher) Record(ctx context.Context, eventType, actorID, description string, metadata map[string]any) error {
	v, err := json.Marshal(auditRecord{
		EventType:   eventType,
		ActorID:     actorID,
		Description: description,
		Metadata:    metadata,
		OccurredAt:  p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	var key []byte
	if tn, ok := metadata["tracking_number"].(string); ok {
		key = []byte(tn)
	}
	return p.write(ctx, kafka.Message{
		Topic:   p.topics.Audit,
		Key:     key,
		Value:   v,
		Headers: []kafka.Header{{Key: "event", Value: []byte(eventType)}},
	})
}

func (p *Publisher) write(ctx context.Context, msg kafka.Message) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.w.Close() }
