// Package notify declares the outbound notification and audit collaborators.
// Both are best-effort: callers log failures and carry on.
package notify

import "context"

type Event string

const (
	EventOTPIssued          Event = "otp_issued"
	EventApplicationCreated Event = "application_submitted"
	EventApproved           Event = "application_approved"
	EventRejected           Event = "application_rejected"
	EventCancelled          Event = "application_cancelled"
	EventPaymentSucceeded   Event = "payment_succeeded"
	EventPaymentFailed      Event = "payment_failed"
	EventFeePaymentDue      Event = "fee_payment_due"
	EventDisbursed          Event = "application_disbursed"
)

type Notifier interface {
	Send(ctx context.Context, event Event, recipient string, payload map[string]any) error
}

type Auditor interface {
	Record(ctx context.Context, eventType, actorID, description string, metadata map[string]any) error
}
