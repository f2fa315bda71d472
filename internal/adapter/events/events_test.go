package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"loan-settlement-engine/internal/domain/notify"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockWriter struct {
	WriteMessagesFunc func(ctx context.Context, msgs ...kafka.Message) error
	written           []kafka.Message
	closed            bool
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.WriteMessagesFunc != nil {
		if err := m.WriteMessagesFunc(ctx, msgs...); err != nil {
			return err
		}
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPublisher(w MessageWriter) *Publisher {
	p := NewPublisher(w, Topics{Notifications: "loan.notifications", Audit: "loan.audit"}, time.Second, nil)
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestPublisher_Send(t *testing.T) {
	w := &mockWriter{}
	p := newTestPublisher(w)

	err := p.Send(context.Background(), notify.EventApproved, "ada@example.com", map[string]any{"tracking_number": "LN-1"})
	require.NoError(t, err)
	require.Len(t, w.written, 1)

	msg := w.written[0]
	assert.Equal(t, "loan.notifications", msg.Topic)
	assert.Equal(t, "ada@example.com", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "event", Value: []byte("application_approved")}}, msg.Headers)

	var got notification
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, notify.EventApproved, got.Event)
	assert.Equal(t, "LN-1", got.Payload["tracking_number"])
	assert.True(t, fixedNow.Equal(got.OccurredAt))
}

func TestPublisher_RecordKeysByTrackingNumber(t *testing.T) {
	w := &mockWriter{}
	p := newTestPublisher(w)

	err := p.Record(context.Background(), "application.approve", "admin-7", "approved", map[string]any{
		"tracking_number": "LN-9", "from": "pending", "to": "approved",
	})
	require.NoError(t, err)
	require.Len(t, w.written, 1)
	assert.Equal(t, "loan.audit", w.written[0].Topic)
	assert.Equal(t, "LN-9", string(w.written[0].Key))

	var got auditRecord
	require.NoError(t, json.Unmarshal(w.written[0].Value, &got))
	assert.Equal(t, "admin-7", got.ActorID)
	assert.Equal(t, "approved", got.Metadata["to"])
}

func TestPublisher_WriteErrorIsReturned(t *testing.T) {
	boom := errors.New("leader not available")
	w := &mockWriter{WriteMessagesFunc: func(ctx context.Context, _ ...kafka.Message) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "publish must be bounded by a deadline")
		return boom
	}}
	err := newTestPublisher(w).Send(context.Background(), notify.EventRejected, "x@example.com", nil)
	assert.ErrorIs(t, err, boom)
}

func TestPublisher_Close(t *testing.T) {
	w := &mockWriter{}
	require.NoError(t, newTestPublisher(w).Close())
	assert.True(t, w.closed)
}

func TestLogSink_RedactsCodes(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSink(zap.New(core))

	require.NoError(t, s.Send(context.Background(), notify.EventOTPIssued, "ada@example.com", map[string]any{"code": "123456", "purpose": "login"}))
	require.NoError(t, s.Record(context.Background(), "otp.issue", "system", "issued", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	payload := entries[0].ContextMap()["payload"].(map[string]any)
	assert.Equal(t, "[redacted]", payload["code"])
	assert.Equal(t, "login", payload["purpose"])
	assert.Equal(t, "otp.issue", entries[1].ContextMap()["event_type"])
}
