package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"testing"

	"loan-settlement-engine/internal/adapter/middleware"
	"loan-settlement-engine/internal/domain/apperr"
	feeuc "loan-settlement-engine/internal/usecase/fee"
	loanuc "loan-settlement-engine/internal/usecase/loan"
	paymentuc "loan-settlement-engine/internal/usecase/payment"
)

func TestAdmin_RequiresAdminRole(t *testing.T) {
	called := false
	loans := &fakeLoans{StartReviewFn: func(context.Context, string, string) (*loanuc.ApplicationDTO, error) {
		called = true
		return &loanuc.ApplicationDTO{}, nil
	}}
	e := newTestRouter(Services{Loans: loans})

	rec := do(t, e, stdhttp.MethodPost, "/admin/applications/LN-1/review", nil, nil)
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("no actor: status = %d, want 401", rec.Code)
	}
	rec = do(t, e, stdhttp.MethodPost, "/admin/applications/LN-1/review", nil, map[string]string{
		middleware.HeaderActorID:   "user-1",
		middleware.HeaderActorRole: "applicant",
	})
	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("wrong role: status = %d, want 403", rec.Code)
	}
	if called {
		t.Fatalf("usecase reached without admin role")
	}
	rec = do(t, e, stdhttp.MethodPost, "/admin/applications/LN-1/review", nil, admin())
	if rec.Code != stdhttp.StatusOK || !called {
		t.Fatalf("admin: status = %d called=%v", rec.Code, called)
	}
}

func TestAdmin_ApprovePassesActor(t *testing.T) {
	var actor string
	var amount int64
	loans := &fakeLoans{ApproveFn: func(_ context.Context, _ string, in loanuc.ApproveInput, a string) (*loanuc.ApplicationDTO, error) {
		actor, amount = a, in.ApprovedAmount
		fee := int64(20000)
		return &loanuc.ApplicationDTO{Status: "approved", ApprovedAmount: &in.ApprovedAmount, ProcessingFeeAmount: &fee}, nil
	}}
	e := newTestRouter(Services{Loans: loans})

	rec := do(t, e, stdhttp.MethodPost, "/admin/applications/LN-1/approve", map[string]any{"approved_amount": 1000000}, admin())
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d; body=%s", rec.Code, rec.Body.String())
	}
	if actor != "ops-7" || amount != 1000000 {
		t.Fatalf("actor=%q amount=%d", actor, amount)
	}
	var dto loanuc.ApplicationDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if dto.ProcessingFeeAmount == nil || *dto.ProcessingFeeAmount != 20000 {
		t.Fatalf("unexpected fee: %+v", dto.ProcessingFeeAmount)
	}

	rec = do(t, e, stdhttp.MethodPost, "/admin/applications/LN-1/approve", map[string]any{"approved_amount": -5}, admin())
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("negative amount: status = %d, want 422", rec.Code)
	}
}

func TestAdmin_RejectRequiresReason(t *testing.T) {
	e := newTestRouter(Services{Loans: &fakeLoans{}})
	rec := do(t, e, stdhttp.MethodPost, "/admin/applications/LN-1/reject", map[string]any{}, admin())
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if er := decodeError(t, rec); !containsFieldMsg(er.Details, "reason", "required") {
		t.Fatalf("unexpected details: %+v", er.Details)
	}
}

func TestAdmin_InvariantIsOpaque500(t *testing.T) {
	loans := &fakeLoans{ConfirmPaymentFn: func(context.Context, string, string) (*loanuc.ApplicationDTO, error) {
		return nil, apperr.Invariant("fee_amount_mismatch", "succeeded payment amount 19999 does not match fee 20000")
	}}
	e := newTestRouter(Services{Loans: loans})

	rec := do(t, e, stdhttp.MethodPost, "/admin/applications/LN-1/confirm-payment", nil, admin())
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	er := decodeError(t, rec)
	if er.Error != "internal error" || er.Reason != "fee_amount_mismatch" {
		t.Fatalf("unexpected body: %+v", er)
	}
}

func TestAdmin_ForeignErrorIsOpaque500(t *testing.T) {
	loans := &fakeLoans{ConfirmPaymentFn: func(context.Context, string, string) (*loanuc.ApplicationDTO, error) {
		return nil, errors.New("dial tcp 10.0.0.3:3306: connection refused")
	}}
	e := newTestRouter(Services{Loans: loans})

	rec := do(t, e, stdhttp.MethodPost, "/admin/applications/LN-1/confirm-payment", nil, admin())
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if er := decodeError(t, rec); er.Error != "internal error" || er.Reason != "internal" {
		t.Fatalf("cause leaked: %+v", er)
	}
}

func TestAdmin_FailPayment(t *testing.T) {
	var pid, reason string
	loans := &fakeLoans{FailPaymentFn: func(_ context.Context, _ string, p, r, _ string) (*loanuc.PaymentResult, error) {
		pid, reason = p, r
		return &loanuc.PaymentResult{ApplicationStatus: "approved", Payment: loanuc.PaymentDTO{PaymentID: p, Status: "cancelled"}}, nil
	}}
	e := newTestRouter(Services{Loans: loans})

	rec := do(t, e, stdhttp.MethodPost, "/admin/applications/LN-1/payments/p9/fail", map[string]any{"reason": "applicant_abandoned"}, admin())
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d; body=%s", rec.Code, rec.Body.String())
	}
	if pid != "p9" || reason != "applicant_abandoned" {
		t.Fatalf("pid=%q reason=%q", pid, reason)
	}
}

func TestAdmin_DisburseAndUpdate(t *testing.T) {
	var upd loanuc.DisbursementUpdateInput
	loans := &fakeLoans{
		DisburseFn: func(_ context.Context, tn string, in loanuc.DisburseInput, _ string) (*loanuc.DisbursementDTO, error) {
			return &loanuc.DisbursementDTO{DisbursementID: "d1", TrackingNumber: tn, Amount: 1000000, Status: "pending"}, nil
		},
		UpdateDisbFn: func(_ context.Context, id string, in loanuc.DisbursementUpdateInput, _ string) (*loanuc.DisbursementDTO, error) {
			upd = in
			return &loanuc.DisbursementDTO{DisbursementID: id, Status: in.Status}, nil
		},
	}
	e := newTestRouter(Services{Loans: loans})

	rec := do(t, e, stdhttp.MethodPost, "/admin/applications/LN-1/disburse", map[string]any{"bank_name": "First"}, admin())
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("missing bank fields: status = %d, want 422", rec.Code)
	}

	rec = do(t, e, stdhttp.MethodPost, "/admin/applications/LN-1/disburse", map[string]any{
		"bank_name":           "First",
		"bank_account_number": "000123456789",
		"account_holder_name": "Ada Lovelace",
	}, admin())
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, want 201; body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, stdhttp.MethodPatch, "/admin/disbursements/d1", map[string]any{"status": "settled"}, admin())
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("unknown status: code = %d, want 422", rec.Code)
	}
	rec = do(t, e, stdhttp.MethodPatch, "/admin/disbursements/d1", map[string]any{"status": "completed", "external_ref": "WIRE-1"}, admin())
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if upd.Status != "completed" || upd.ExternalRef != "WIRE-1" {
		t.Fatalf("unexpected update: %+v", upd)
	}
}

func TestAdmin_FeeConfiguration(t *testing.T) {
	var got feeuc.ConfigureInput
	fees := &fakeFees{
		GetFn: func(context.Context) (*feeuc.ConfigurationDTO, error) {
			return nil, apperr.Configuration("no_active_fee_configuration", "no active fee configuration")
		},
		ConfigureFn: func(_ context.Context, in feeuc.ConfigureInput, actor string) (*feeuc.ConfigurationDTO, error) {
			got = in
			return &feeuc.ConfigurationDTO{ID: 2, Mode: in.Mode, PercentageRate: in.PercentageRate, IsActive: true, CreatedBy: actor}, nil
		},
	}
	e := newTestRouter(Services{Fees: fees})

	rec := do(t, e, stdhttp.MethodGet, "/admin/fee-configuration", nil, admin())
	if rec.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("unconfigured: status = %d, want 503", rec.Code)
	}

	rec = do(t, e, stdhttp.MethodPut, "/admin/fee-configuration", map[string]any{"calculation_mode": "tiered"}, admin())
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("bad mode: status = %d, want 422", rec.Code)
	}
	rec = do(t, e, stdhttp.MethodPut, "/admin/fee-configuration", map[string]any{"calculation_mode": "percentage", "percentage_rate": 20000}, admin())
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("rate above 100%%: status = %d, want 422", rec.Code)
	}

	rec = do(t, e, stdhttp.MethodPut, "/admin/fee-configuration", map[string]any{"calculation_mode": "percentage", "percentage_rate": 200}, admin())
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d; body=%s", rec.Code, rec.Body.String())
	}
	if got.Mode != "percentage" || got.PercentageRate != 200 {
		t.Fatalf("unexpected input: %+v", got)
	}
}

func TestAdmin_WalletCurrencyFromPath(t *testing.T) {
	var got paymentuc.WalletInput
	wallets := &fakeWallets{ConfigureFn: func(_ context.Context, in paymentuc.WalletInput, actor string) (*paymentuc.WalletDTO, error) {
		got = in
		if in.Currency == "BTC" && in.Address == "not-an-address" {
			return nil, apperr.Validation("address", "invalid_address", "address is not valid for BTC")
		}
		return &paymentuc.WalletDTO{Currency: in.Currency, Address: in.Address, UpdatedBy: actor}, nil
	}}
	e := newTestRouter(Services{Wallets: wallets})

	rec := do(t, e, stdhttp.MethodPut, "/admin/wallets/ETH", map[string]any{
		"currency": "BTC",
		"address":  "0x52908400098527886E0F7030069857D2E4169EE7",
	}, admin())
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d; body=%s", rec.Code, rec.Body.String())
	}
	if got.Currency != "ETH" {
		t.Fatalf("currency = %q, want path value", got.Currency)
	}

	rec = do(t, e, stdhttp.MethodPut, "/admin/wallets/BTC", map[string]any{"address": "not-an-address"}, admin())
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if er := decodeError(t, rec); er.Field != "address" || er.Reason != "invalid_address" {
		t.Fatalf("unexpected body: %+v", er)
	}
}
