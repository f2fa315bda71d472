package notifymock

import (
	"context"
	"sync"

	"loan-settlement-engine/internal/domain/notify"
)

var (
	_ notify.Notifier = (*Recorder)(nil)
	_ notify.Auditor  = (*Recorder)(nil)
)

type Sent struct {
	Event     notify.Event
	Recipient string
	Payload   map[string]any
}

type Audited struct {
	EventType   string
	ActorID     string
	Description string
	Metadata    map[string]any
}

// Recorder captures notifications and audit records. Err, when set, is
// returned from every call after recording it.
type Recorder struct {
	Err error

	mu      sync.Mutex
	sent    []Sent
	audited []Audited
}

func (r *Recorder) Send(_ context.Context, event notify.Event, recipient string, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{Event: event, Recipient: recipient, Payload: payload})
	return r.Err
}

func (r *Recorder) Record(_ context.Context, eventType, actorID, description string, metadata map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audited = append(r.audited, Audited{EventType: eventType, ActorID: actorID, Description: description, Metadata: metadata})
	return r.Err
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

func (r *Recorder) Audited() []Audited {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Audited(nil), r.audited...)
}

// Events lists sent notification events in order.
func (r *Recorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Event, 0, len(r.sent))
	for _, s := range r.sent {
		out = append(out, s.Event)
	}
	return out
}
