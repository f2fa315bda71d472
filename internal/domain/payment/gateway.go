package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateOracle quotes the fiat price of one whole unit of a crypto currency.
type RateOracle interface {
	Price(ctx context.Context, crypto, fiat string) (decimal.Decimal, error)
}

type CardChargeStatus string

const (
	CardChargeSucceeded CardChargeStatus = "succeeded"
	CardChargePending   CardChargeStatus = "pending"
	CardChargeFailed    CardChargeStatus = "failed"
)

type CardChargeRequest struct {
	// IdempotencyKey is the payment id; a replay returns the original charge.
	IdempotencyKey string
	Amount         int64
	Currency       string
	PaymentMethod  string
	Description    string
}

type CardCharge struct {
	Ref           string
	Status        CardChargeStatus
	Amount        int64
	Currency      string
	Last4         string
	Brand         string
	FailureReason string
}

// CardProcessor creates and looks up card charges. Declines come back as a
// CardCharge with status failed; errors are reserved for the processor itself.
type CardProcessor interface {
	CreateCharge(ctx context.Context, req CardChargeRequest) (CardCharge, error)
	GetCharge(ctx context.Context, ref string) (CardCharge, error)
}
