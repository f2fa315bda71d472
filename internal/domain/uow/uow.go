package uow

import (
	"context"

	"loan-settlement-engine/internal/domain/disbursement"
	"loan-settlement-engine/internal/domain/fee"
	"loan-settlement-engine/internal/domain/loan"
	"loan-settlement-engine/internal/domain/otp"
	"loan-settlement-engine/internal/domain/payment"
	"loan-settlement-engine/internal/domain/wallet"
)

// Repos are bound to the same transaction.
type Repos struct {
	Loans         loan.Repository
	Payments      payment.Repository
	Disbursements disbursement.Repository
	Fees          fee.Repository
	OTPs          otp.Repository
	Wallets       wallet.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the application row first, then pass it in
	WithinApplicationTx(ctx context.Context, trackingNumber string, fn func(r Repos, a *loan.Application) error) error
}
