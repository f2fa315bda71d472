package http

import (
	"context"

	feeuc "loan-settlement-engine/internal/usecase/fee"
	loanuc "loan-settlement-engine/internal/usecase/loan"
	otpuc "loan-settlement-engine/internal/usecase/otp"
	paymentuc "loan-settlement-engine/internal/usecase/payment"
)

// LoanService is the lifecycle surface the handlers drive.
type LoanService interface {
	Submit(ctx context.Context, in loanuc.SubmitInput) (*loanuc.ApplicationDTO, error)
	Get(ctx context.Context, trackingNumber string) (*loanuc.ApplicationDTO, error)
	ListPayments(ctx context.Context, trackingNumber string) ([]loanuc.PaymentDTO, error)
	Cancel(ctx context.Context, trackingNumber, actorID string) (*loanuc.ApplicationDTO, error)

	InitiatePayment(ctx context.Context, trackingNumber string, in loanuc.InitiatePaymentInput, actorID string) (*loanuc.PaymentResult, error)
	VerifyPayment(ctx context.Context, trackingNumber, paymentID string, in loanuc.VerifyPaymentInput, actorID string) (*loanuc.PaymentResult, error)

	StartReview(ctx context.Context, trackingNumber, actorID string) (*loanuc.ApplicationDTO, error)
	Approve(ctx context.Context, trackingNumber string, in loanuc.ApproveInput, actorID string) (*loanuc.ApplicationDTO, error)
	Reject(ctx context.Context, trackingNumber string, in loanuc.RejectInput, actorID string) (*loanuc.ApplicationDTO, error)
	ConfirmPayment(ctx context.Context, trackingNumber, actorID string) (*loanuc.ApplicationDTO, error)
	FailPayment(ctx context.Context, trackingNumber, paymentID, reason, actorID string) (*loanuc.PaymentResult, error)
	Disburse(ctx context.Context, trackingNumber string, in loanuc.DisburseInput, actorID string) (*loanuc.DisbursementDTO, error)
	UpdateDisbursementStatus(ctx context.Context, disbursementID string, in loanuc.DisbursementUpdateInput, actorID string) (*loanuc.DisbursementDTO, error)
}

type OTPService interface {
	Issue(ctx context.Context, in otpuc.IssueInput) (*otpuc.IssueResult, error)
	Verify(ctx context.Context, in otpuc.VerifyInput) (*otpuc.VerifyResult, error)
	VerifyForReset(ctx context.Context, in otpuc.VerifyInput) (*otpuc.VerifyResult, error)
}

type FeeService interface {
	Get(ctx context.Context) (*feeuc.ConfigurationDTO, error)
	Configure(ctx context.Context, in feeuc.ConfigureInput, actorID string) (*feeuc.ConfigurationDTO, error)
}

type WalletService interface {
	ConfigureWallet(ctx context.Context, in paymentuc.WalletInput, actorID string) (*paymentuc.WalletDTO, error)
}

var (
	_ LoanService   = (*loanuc.Usecase)(nil)
	_ OTPService    = (*otpuc.Usecase)(nil)
	_ FeeService    = (*feeuc.Usecase)(nil)
	_ WalletService = (*paymentuc.Gateway)(nil)
)
