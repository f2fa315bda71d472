package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// VerificationStatus is the outcome of checking one transaction against an expected transfer.
type VerificationStatus string

const (
	VerificationInvalidFormat     VerificationStatus = "invalid_format"
	VerificationNotFound          VerificationStatus = "not_found"
	VerificationRecipientMismatch VerificationStatus = "recipient_mismatch"
	VerificationAmountMismatch    VerificationStatus = "amount_mismatch"
	VerificationOnChainFailed     VerificationStatus = "on_chain_failed"
	VerificationPending           VerificationStatus = "pending"
	VerificationConfirmed         VerificationStatus = "confirmed"
)

// Permanent reports whether the proof itself is bad and the payment must fail.
func (s VerificationStatus) Permanent() bool {
	switch s {
	case VerificationInvalidFormat, VerificationRecipientMismatch, VerificationAmountMismatch, VerificationOnChainFailed:
		return true
	}
	return false
}

type Expected struct {
	Address string
	Amount  decimal.Decimal // in whole units of the currency, e.g. 0.0125 BTC
}

type Verification struct {
	Status        VerificationStatus
	Confirmations int
	Required      int
	Detail        string
}

// ChainVerifier checks a transaction hash for one currency. A non-nil error is
// a transient failure (network, provider) and says nothing about the proof.
type ChainVerifier interface {
	Verify(ctx context.Context, currency, txHash string, want Expected) (Verification, error)
}
