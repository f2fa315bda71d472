package loanmock

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "loan-settlement-engine/internal/domain/loan"
)

func TestRepo_Create(t *testing.T) {
	ctx := context.Background()
	a := &domain.Application{TrackingNumber: "LN-1"}

	called := false
	wantErr := errors.New("boom")
	m := &Repo{
		CreateFn: func(gotCtx context.Context, got *domain.Application) error {
			called = true
			if gotCtx != ctx {
				t.Fatalf("Create ctx mismatch")
			}
			if got != a {
				t.Fatalf("Create arg mismatch")
			}
			return wantErr
		},
	}
	if err := m.Create(ctx, a); !errors.Is(err, wantErr) {
		t.Fatalf("Create: want %v, got %v", wantErr, err)
	}
	if !called {
		t.Fatalf("CreateFn not called")
	}

	// Default (nil func) → no-op, nil error
	m = &Repo{}
	if err := m.Create(ctx, a); err != nil {
		t.Fatalf("Create default: want nil, got %v", err)
	}
}

func TestRepo_GetByTrackingNumber(t *testing.T) {
	ctx := context.Background()
	want := &domain.Application{TrackingNumber: "LN-2"}

	m := &Repo{
		GetByTrackingNumberFn: func(_ context.Context, tn string) (*domain.Application, error) {
			if tn != "LN-2" {
				t.Fatalf("tracking number mismatch: got %s", tn)
			}
			return want, nil
		},
	}
	got, err := m.GetByTrackingNumber(ctx, "LN-2")
	if err != nil || got != want {
		t.Fatalf("GetByTrackingNumber: got (%v, %v)", got, err)
	}

	m = &Repo{}
	if _, err := m.GetByTrackingNumber(ctx, "LN-2"); !errors.Is(err, context.Canceled) {
		t.Fatalf("GetByTrackingNumber default: want context.Canceled, got %v", err)
	}
	if _, err := m.GetByTrackingNumberForUpdate(ctx, "LN-2"); !errors.Is(err, context.Canceled) {
		t.Fatalf("GetByTrackingNumberForUpdate default: want context.Canceled, got %v", err)
	}
}

func TestRepo_Transition(t *testing.T) {
	ctx := context.Background()
	a := &domain.Application{Status: domain.StatusApproved}

	var gotFrom domain.Status
	m := &Repo{TransitionFn: func(_ context.Context, _ *domain.Application, from domain.Status) error {
		gotFrom = from
		return domain.ErrStaleStatus
	}}
	if err := m.Transition(ctx, a, domain.StatusPending); !errors.Is(err, domain.ErrStaleStatus) {
		t.Fatalf("Transition: want ErrStaleStatus, got %v", err)
	}
	if gotFrom != domain.StatusPending {
		t.Fatalf("Transition from mismatch: %s", gotFrom)
	}

	m = &Repo{}
	if err := m.Transition(ctx, a, domain.StatusPending); err != nil {
		t.Fatalf("Transition default: want nil, got %v", err)
	}
}

func TestRepo_Defaults(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}
	if ok, err := m.ClaimFeeReminder(ctx, 1, time.Time{}); !ok || err != nil {
		t.Fatalf("ClaimFeeReminder default: got (%v, %v)", ok, err)
	}
	if exists, err := m.TrackingNumberExists(ctx, "LN"); exists || err != nil {
		t.Fatalf("TrackingNumberExists default: got (%v, %v)", exists, err)
	}
	if got, err := m.FindByIdentity(ctx, "a@b.c", "123"); got != nil || err != nil {
		t.Fatalf("FindByIdentity default: got (%v, %v)", got, err)
	}
}
