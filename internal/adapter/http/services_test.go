package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"loan-settlement-engine/internal/adapter/middleware"
	feeuc "loan-settlement-engine/internal/usecase/fee"
	loanuc "loan-settlement-engine/internal/usecase/loan"
	otpuc "loan-settlement-engine/internal/usecase/otp"
	paymentuc "loan-settlement-engine/internal/usecase/payment"

	"github.com/labstack/echo/v4"
)

var errUnset = errors.New("unset")

// fakeLoans is a function-backed LoanService; unset methods fail with errUnset.
type fakeLoans struct {
	SubmitFn          func(ctx context.Context, in loanuc.SubmitInput) (*loanuc.ApplicationDTO, error)
	GetFn             func(ctx context.Context, tn string) (*loanuc.ApplicationDTO, error)
	ListPaymentsFn    func(ctx context.Context, tn string) ([]loanuc.PaymentDTO, error)
	CancelFn          func(ctx context.Context, tn, actor string) (*loanuc.ApplicationDTO, error)
	InitiatePaymentFn func(ctx context.Context, tn string, in loanuc.InitiatePaymentInput, actor string) (*loanuc.PaymentResult, error)
	VerifyPaymentFn   func(ctx context.Context, tn, pid string, in loanuc.VerifyPaymentInput, actor string) (*loanuc.PaymentResult, error)
	StartReviewFn     func(ctx context.Context, tn, actor string) (*loanuc.ApplicationDTO, error)
	ApproveFn         func(ctx context.Context, tn string, in loanuc.ApproveInput, actor string) (*loanuc.ApplicationDTO, error)
	RejectFn          func(ctx context.Context, tn string, in loanuc.RejectInput, actor string) (*loanuc.ApplicationDTO, error)
	ConfirmPaymentFn  func(ctx context.Context, tn, actor string) (*loanuc.ApplicationDTO, error)
	FailPaymentFn     func(ctx context.Context, tn, pid, reason, actor string) (*loanuc.PaymentResult, error)
	DisburseFn        func(ctx context.Context, tn string, in loanuc.DisburseInput, actor string) (*loanuc.DisbursementDTO, error)
	UpdateDisbFn      func(ctx context.Context, id string, in loanuc.DisbursementUpdateInput, actor string) (*loanuc.DisbursementDTO, error)
}

func (f *fakeLoans) Submit(ctx context.Context, in loanuc.SubmitInput) (*loanuc.ApplicationDTO, error) {
	if f.SubmitFn == nil {
		return nil, errUnset
	}
	return f.SubmitFn(ctx, in)
}

func (f *fakeLoans) Get(ctx context.Context, tn string) (*loanuc.ApplicationDTO, error) {
	if f.GetFn == nil {
		return nil, errUnset
	}
	return f.GetFn(ctx, tn)
}

func (f *fakeLoans) ListPayments(ctx context.Context, tn string) ([]loanuc.PaymentDTO, error) {
	if f.ListPaymentsFn == nil {
		return nil, errUnset
	}
	return f.ListPaymentsFn(ctx, tn)
}

func (f *fakeLoans) Cancel(ctx context.Context, tn, actor string) (*loanuc.ApplicationDTO, error) {
	if f.CancelFn == nil {
		return nil, errUnset
	}
	return f.CancelFn(ctx, tn, actor)
}

func (f *fakeLoans) InitiatePayment(ctx context.Context, tn string, in loanuc.InitiatePaymentInput, actor string) (*loanuc.PaymentResult, error) {
	if f.InitiatePaymentFn == nil {
		return nil, errUnset
	}
	return f.InitiatePaymentFn(ctx, tn, in, actor)
}

func (f *fakeLoans) VerifyPayment(ctx context.Context, tn, pid string, in loanuc.VerifyPaymentInput, actor string) (*loanuc.PaymentResult, error) {
	if f.VerifyPaymentFn == nil {
		return nil, errUnset
	}
	return f.VerifyPaymentFn(ctx, tn, pid, in, actor)
}

func (f *fakeLoans) StartReview(ctx context.Context, tn, actor string) (*loanuc.ApplicationDTO, error) {
	if f.StartReviewFn == nil {
		return nil, errUnset
	}
	return f.StartReviewFn(ctx, tn, actor)
}

func (f *fakeLoans) Approve(ctx context.Context, tn string, in loanuc.ApproveInput, actor string) (*loanuc.ApplicationDTO, error) {
	if f.ApproveFn == nil {
		return nil, errUnset
	}
	return f.ApproveFn(ctx, tn, in, actor)
}

func (f *fakeLoans) Reject(ctx context.Context, tn string, in loanuc.RejectInput, actor string) (*loanuc.ApplicationDTO, error) {
	if f.RejectFn == nil {
		return nil, errUnset
	}
	return f.RejectFn(ctx, tn, in, actor)
}

func (f *fakeLoans) ConfirmPayment(ctx context.Context, tn, actor string) (*loanuc.ApplicationDTO, error) {
	if f.ConfirmPaymentFn == nil {
		return nil, errUnset
	}
	return f.ConfirmPaymentFn(ctx, tn, actor)
}

func (f *fakeLoans) FailPayment(ctx context.Context, tn, pid, reason, actor string) (*loanuc.PaymentResult, error) {
	if f.FailPaymentFn == nil {
		return nil, errUnset
	}
	return f.FailPaymentFn(ctx, tn, pid, reason, actor)
}

func (f *fakeLoans) Disburse(ctx context.Context, tn string, in loanuc.DisburseInput, actor string) (*loanuc.DisbursementDTO, error) {
	if f.DisburseFn == nil {
		return nil, errUnset
	}
	return f.DisburseFn(ctx, tn, in, actor)
}

func (f *fakeLoans) UpdateDisbursementStatus(ctx context.Context, id string, in loanuc.DisbursementUpdateInput, actor string) (*loanuc.DisbursementDTO, error) {
	if f.UpdateDisbFn == nil {
		return nil, errUnset
	}
	return f.UpdateDisbFn(ctx, id, in, actor)
}

type fakeOTP struct {
	IssueFn  func(ctx context.Context, in otpuc.IssueInput) (*otpuc.IssueResult, error)
	VerifyFn func(ctx context.Context, in otpuc.VerifyInput) (*otpuc.VerifyResult, error)
	ResetFn  func(ctx context.Context, in otpuc.VerifyInput) (*otpuc.VerifyResult, error)
}

func (f *fakeOTP) Issue(ctx context.Context, in otpuc.IssueInput) (*otpuc.IssueResult, error) {
	if f.IssueFn == nil {
		return nil, errUnset
	}
	return f.IssueFn(ctx, in)
}

func (f *fakeOTP) Verify(ctx context.Context, in otpuc.VerifyInput) (*otpuc.VerifyResult, error) {
	if f.VerifyFn == nil {
		return nil, errUnset
	}
	return f.VerifyFn(ctx, in)
}

func (f *fakeOTP) VerifyForReset(ctx context.Context, in otpuc.VerifyInput) (*otpuc.VerifyResult, error) {
	if f.ResetFn == nil {
		return nil, errUnset
	}
	return f.ResetFn(ctx, in)
}

type fakeFees struct {
	GetFn       func(ctx context.Context) (*feeuc.ConfigurationDTO, error)
	ConfigureFn func(ctx context.Context, in feeuc.ConfigureInput, actor string) (*feeuc.ConfigurationDTO, error)
}

func (f *fakeFees) Get(ctx context.Context) (*feeuc.ConfigurationDTO, error) {
	if f.GetFn == nil {
		return nil, errUnset
	}
	return f.GetFn(ctx)
}

func (f *fakeFees) Configure(ctx context.Context, in feeuc.ConfigureInput, actor string) (*feeuc.ConfigurationDTO, error) {
	if f.ConfigureFn == nil {
		return nil, errUnset
	}
	return f.ConfigureFn(ctx, in, actor)
}

type fakeWallets struct {
	ConfigureFn func(ctx context.Context, in paymentuc.WalletInput, actor string) (*paymentuc.WalletDTO, error)
}

func (f *fakeWallets) ConfigureWallet(ctx context.Context, in paymentuc.WalletInput, actor string) (*paymentuc.WalletDTO, error) {
	if f.ConfigureFn == nil {
		return nil, errUnset
	}
	return f.ConfigureFn(ctx, in, actor)
}

// -------- helpers --------

func mustJSON(v any) io.Reader {
	if v == nil {
		return nil
	}
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

// do sends one request through the full router.
func do(t *testing.T, e *echo.Echo, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, mustJSON(body))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func admin() map[string]string {
	return map[string]string{
		middleware.HeaderActorID:   "ops-7",
		middleware.HeaderActorRole: middleware.RoleAdmin,
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad error json: %v; raw=%s", err, rec.Body.String())
	}
	return out
}

func newTestRouter(s Services) *echo.Echo {
	return NewRouter(s, RouterConfig{Metrics: stdhttp.NotFoundHandler()})
}
