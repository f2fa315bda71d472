package paymentmock

import (
	"context"
	"errors"
	"testing"

	domain "loan-settlement-engine/internal/domain/payment"
)

func TestRepo_Update(t *testing.T) {
	ctx := context.Background()
	p := &domain.Payment{PaymentID: "p1", Status: domain.StatusSucceeded}

	called := false
	m := &Repo{
		UpdateFn: func(gotCtx context.Context, got *domain.Payment, from domain.Status) error {
			called = true
			if gotCtx != ctx || got != p {
				t.Fatalf("Update args not forwarded")
			}
			if from != domain.StatusProcessing {
				t.Fatalf("Update from mismatch: %s", from)
			}
			return domain.ErrStaleStatus
		},
	}
	if err := m.Update(ctx, p, domain.StatusProcessing); !errors.Is(err, domain.ErrStaleStatus) {
		t.Fatalf("Update: want ErrStaleStatus, got %v", err)
	}
	if !called {
		t.Fatalf("UpdateFn not called")
	}

	// Default (nil func) → no-op, nil error
	m = &Repo{}
	if err := m.Update(ctx, p, domain.StatusProcessing); err != nil {
		t.Fatalf("Update default: want nil, got %v", err)
	}
}

func TestRepo_GetByPaymentID_Default(t *testing.T) {
	m := &Repo{}
	if _, err := m.GetByPaymentID(context.Background(), "p1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("GetByPaymentID default: want context.Canceled, got %v", err)
	}
}

func TestCards_RecordsRequests(t *testing.T) {
	m := &Cards{CreateChargeFn: func(_ context.Context, req domain.CardChargeRequest) (domain.CardCharge, error) {
		return domain.CardCharge{Ref: "ch_" + req.IdempotencyKey, Status: domain.CardChargeSucceeded}, nil
	}}
	ch, err := m.CreateCharge(context.Background(), domain.CardChargeRequest{IdempotencyKey: "k1"})
	if err != nil || ch.Ref != "ch_k1" {
		t.Fatalf("CreateCharge: got (%+v, %v)", ch, err)
	}
	if len(m.Requests) != 1 || m.Requests[0].IdempotencyKey != "k1" {
		t.Fatalf("request not recorded: %+v", m.Requests)
	}
	if _, err := (&Cards{}).GetCharge(context.Background(), "x"); !errors.Is(err, errUnimplemented) {
		t.Fatalf("GetCharge default: want errUnimplemented, got %v", err)
	}
}

func TestChains_Defaults(t *testing.T) {
	m := &Chains{}
	if n, err := m.RequiredConfirmations("ETH"); n != 12 || err != nil {
		t.Fatalf("RequiredConfirmations default: got (%d, %v)", n, err)
	}
	if err := m.ValidateAddress("ETH", "0x"); err != nil {
		t.Fatalf("ValidateAddress default: want nil, got %v", err)
	}
	if _, err := m.Verify(context.Background(), "ETH", "0x", domain.Expected{}); !errors.Is(err, errUnimplemented) {
		t.Fatalf("Verify default: want errUnimplemented, got %v", err)
	}
}
