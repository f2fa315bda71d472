package paymentmock

import (
	"context"
	"errors"
	"sync"

	domain "loan-settlement-engine/internal/domain/payment"

	"github.com/shopspring/decimal"
)

var errUnimplemented = errors.New("paymentmock: method not implemented")

// Oracle satisfies domain.RateOracle.
type Oracle struct {
	PriceFn func(ctx context.Context, crypto, fiat string) (decimal.Decimal, error)
}

func (m *Oracle) Price(ctx context.Context, crypto, fiat string) (decimal.Decimal, error) {
	if m.PriceFn != nil {
		return m.PriceFn(ctx, crypto, fiat)
	}
	return decimal.Zero, errUnimplemented
}

// FixedPrice returns an Oracle quoting the same price for every pair.
func FixedPrice(price string) *Oracle {
	p := decimal.RequireFromString(price)
	return &Oracle{PriceFn: func(context.Context, string, string) (decimal.Decimal, error) { return p, nil }}
}

// Cards satisfies domain.CardProcessor and records every create request.
type Cards struct {
	CreateChargeFn func(ctx context.Context, req domain.CardChargeRequest) (domain.CardCharge, error)
	GetChargeFn    func(ctx context.Context, ref string) (domain.CardCharge, error)

	mu       sync.Mutex
	Requests []domain.CardChargeRequest
}

func (m *Cards) CreateCharge(ctx context.Context, req domain.CardChargeRequest) (domain.CardCharge, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.CreateChargeFn != nil {
		return m.CreateChargeFn(ctx, req)
	}
	return domain.CardCharge{}, errUnimplemented
}

func (m *Cards) GetCharge(ctx context.Context, ref string) (domain.CardCharge, error) {
	if m.GetChargeFn != nil {
		return m.GetChargeFn(ctx, ref)
	}
	return domain.CardCharge{}, errUnimplemented
}

// Chains is a scriptable chain verifier. Required defaults to 12 and every
// address validates unless ValidateAddressFn says otherwise.
type Chains struct {
	VerifyFn          func(ctx context.Context, currency, txHash string, want domain.Expected) (domain.Verification, error)
	RequiredFn        func(currency string) (int, error)
	ValidateAddressFn func(currency, address string) error
}

func (m *Chains) Verify(ctx context.Context, currency, txHash string, want domain.Expected) (domain.Verification, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, currency, txHash, want)
	}
	return domain.Verification{}, errUnimplemented
}

func (m *Chains) RequiredConfirmations(currency string) (int, error) {
	if m.RequiredFn != nil {
		return m.RequiredFn(currency)
	}
	return 12, nil
}

func (m *Chains) ValidateAddress(currency, address string) error {
	if m.ValidateAddressFn != nil {
		return m.ValidateAddressFn(currency, address)
	}
	return nil
}
