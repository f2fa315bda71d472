package loan

import (
	"loan-settlement-engine/internal/domain/apperr"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusFeePending  Status = "fee_pending"
	StatusFeePaid     Status = "fee_paid"
	StatusDisbursed   Status = "disbursed"
	StatusRejected    Status = "rejected"
	StatusCancelled   Status = "cancelled"
)

// Event is a named lifecycle transition.
type Event string

const (
	EventStartReview     Event = "start_review"
	EventApprove         Event = "approve"
	EventReject          Event = "reject"
	EventInitiatePayment Event = "initiate_payment"
	EventPaymentFailed   Event = "payment_failed"
	EventConfirmPayment  Event = "confirm_payment"
	EventDisburse        Event = "disburse"
	EventCancel          Event = "cancel"

	// EventSubmit creates an application; it has no entry in the transition table.
	EventSubmit Event = "submit"
)

var (
	ErrNotFound          = apperr.NotFound("application_not_found", "loan application not found")
	ErrInvalidTransition = apperr.Conflict("invalid_transition", "transition not allowed from current status")
	ErrStaleStatus       = apperr.Conflict("stale_status", "application status changed concurrently")
	ErrTerminal          = apperr.Conflict("terminal_status", "application is in a terminal status")
	ErrFeeNotPaid        = apperr.Conflict("fee_not_paid", "no succeeded payment covers the processing fee")
)

// transitions is the only place allowed moves are declared: event -> from -> to.
var transitions = map[Event]map[Status]Status{
	EventStartReview: {
		StatusPending: StatusUnderReview,
	},
	EventApprove: {
		StatusPending:     StatusApproved,
		StatusUnderReview: StatusApproved,
	},
	EventReject: {
		StatusPending:     StatusRejected,
		StatusUnderReview: StatusRejected,
		StatusApproved:    StatusRejected,
		StatusFeePending:  StatusRejected,
		StatusFeePaid:     StatusRejected,
	},
	EventInitiatePayment: {
		StatusApproved: StatusFeePending,
	},
	EventPaymentFailed: {
		StatusFeePending: StatusApproved,
	},
	EventConfirmPayment: {
		StatusFeePending: StatusFeePaid,
	},
	EventDisburse: {
		StatusFeePaid: StatusDisbursed,
	},
	EventCancel: {
		StatusPending:     StatusCancelled,
		StatusUnderReview: StatusCancelled,
		StatusApproved:    StatusCancelled,
	},
}

// Next resolves the target status for ev, or an error naming why it is refused.
func Next(from Status, ev Event) (Status, error) {
	if from.IsTerminal() {
		return "", ErrTerminal.With("application is %s; %s not allowed", from, ev)
	}
	byFrom, ok := transitions[ev]
	if !ok {
		return "", ErrInvalidTransition.With("unknown event %q", ev)
	}
	to, ok := byFrom[from]
	if !ok {
		return "", ErrInvalidTransition.With("cannot %s from %s", ev, from)
	}
	return to, nil
}

// IsTerminal: no transition leaves these.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDisbursed, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// IsLive reports whether the application still blocks a resubmission for the same identity.
func (s Status) IsLive() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusFeePending, StatusFeePaid:
		return true
	}
	return false
}

// HasApprovedTerms reports whether approved amount and fee must be set.
func (s Status) HasApprovedTerms() bool {
	switch s {
	case StatusApproved, StatusFeePending, StatusFeePaid, StatusDisbursed:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusFeePending,
		StatusFeePaid, StatusDisbursed, StatusRejected, StatusCancelled:
		return true
	}
	return false
}
