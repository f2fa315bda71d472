package events

import (
	"context"

	"loan-settlement-engine/internal/domain/notify"

	"go.uber.org/zap"
)

// secretKeys are never written to logs.
var secretKeys = map[string]bool{"code": true, "otp": true}

// LogSink stands in for the Kafka publisher when no brokers are configured.
type LogSink struct {
	log *zap.Logger
}

var (
	_ notify.Notifier = LogSink{}
	_ notify.Auditor  = LogSink{}
)

func NewLogSink(log *zap.Logger) LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return LogSink{log: log}
}

func (s LogSink) Send(_ context.Context, event notify.Event, recipient string, payload map[string]any) error {
	s.log.Info("notification",
		zap.String("event", string(event)),
		zap.String("recipient", recipient),
		zap.Any("payload", redact(payload)))
	return nil
}

func (s LogSink) Record(_ context.Context, eventType, actorID, description string, metadata map[string]any) error {
	s.log.Info("audit",
		zap.String("event_type", eventType),
		zap.String("actor_id", actorID),
		zap.String("description", description),
		zap.Any("metadata", redact(metadata)))
	return nil
}

func redact(m map[string]any) map[string]any {
	if len(m) == 0 {
		return m
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if secretKeys[k] {
			v = "[redacted]"
		}
		out[k] = v
	}
	return out
}
