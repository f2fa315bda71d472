package loan

import (
	"errors"
	"testing"
)

var allStatuses = []Status{
	StatusPending, StatusUnderReview, StatusApproved, StatusFeePending,
	StatusFeePaid, StatusDisbursed, StatusRejected, StatusCancelled,
}

var allEvents = []Event{
	EventStartReview, EventApprove, EventReject, EventInitiatePayment,
	EventPaymentFailed, EventConfirmPayment, EventDisburse, EventCancel,
}

func TestNext_HappyPath(t *testing.T) {
	path := []struct {
		ev   Event
		want Status
	}{
		{EventStartReview, StatusUnderReview},
		{EventApprove, StatusApproved},
		{EventInitiatePayment, StatusFeePending},
		{EventPaymentFailed, StatusApproved},
		{EventInitiatePayment, StatusFeePending},
		{EventConfirmPayment, StatusFeePaid},
		{EventDisburse, StatusDisbursed},
	}
	cur := StatusPending
	for _, step := range path {
		next, err := Next(cur, step.ev)
		if err != nil {
			t.Fatalf("%s from %s: %v", step.ev, cur, err)
		}
		if next != step.want {
			t.Fatalf("%s from %s = %s, want %s", step.ev, cur, next, step.want)
		}
		cur = next
	}
}

func TestNext_TerminalStatusesAcceptNothing(t *testing.T) {
	for _, s := range allStatuses {
		if !s.IsTerminal() {
			continue
		}
		for _, ev := range allEvents {
			if _, err := Next(s, ev); !errors.Is(err, ErrTerminal) {
				t.Fatalf("%s from terminal %s: want ErrTerminal, got %v", ev, s, err)
			}
		}
	}
}

func TestNext_Guards(t *testing.T) {
	tests := []struct {
		from Status
		ev   Event
		ok   bool
	}{
		{StatusPending, EventApprove, true},
		{StatusUnderReview, EventApprove, true},
		{StatusApproved, EventApprove, false},
		{StatusFeePending, EventApprove, false},
		{StatusPending, EventInitiatePayment, false},
		{StatusFeePending, EventInitiatePayment, false},
		{StatusApproved, EventConfirmPayment, false},
		{StatusFeePending, EventDisburse, false},
		{StatusFeePaid, EventCancel, false},
		{StatusFeePending, EventCancel, false},
		{StatusApproved, EventCancel, true},
		{StatusFeePaid, EventReject, true},
		{StatusFeePending, EventReject, true},
	}
	for _, tt := range tests {
		_, err := Next(tt.from, tt.ev)
		if tt.ok && err != nil {
			t.Fatalf("%s from %s: unexpected err %v", tt.ev, tt.from, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s from %s: want ErrInvalidTransition, got %v", tt.ev, tt.from, err)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	for _, s := range allStatuses {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
		if s.IsLive() == s.IsTerminal() {
			t.Fatalf("%s: live and terminal must be complementary", s)
		}
	}
	if Status("closed").Valid() {
		t.Fatalf("unknown status reported valid")
	}
	if StatusPending.HasApprovedTerms() || !StatusFeePaid.HasApprovedTerms() {
		t.Fatalf("HasApprovedTerms mismatch")
	}
}
