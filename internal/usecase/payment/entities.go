package payment

import (
	"time"

	"loan-settlement-engine/internal/domain/payment"
)

type CryptoChargeInput struct {
	ApplicationID  uint64
	Amount         int64 // fiat minor units
	FiatCurrency   string
	CryptoCurrency string
}

// CryptoCharge is what the payer needs to send funds. It is carried on the
// Payment row rather than stored on its own.
type CryptoCharge struct {
	ChargeID       string    `json:"charge_id"`
	CryptoCurrency string    `json:"crypto_currency"`
	CryptoAmount   string    `json:"crypto_amount"`
	PaymentAddress string    `json:"payment_address"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Outcome is the effect of one charge or verification call on a Payment.
// Retryable means the caller should poll again later; the payment is not failed.
type Outcome struct {
	Status        payment.Status `json:"status"`
	Retryable     bool           `json:"retryable"`
	Reason        string         `json:"reason,omitempty"`
	Confirmations int            `json:"confirmations,omitempty"`
	Required      int            `json:"required_confirmations,omitempty"`
}

type WalletInput struct {
	Currency string `json:"currency"`
	Address  string `json:"address" validate:"required"`
}

type WalletDTO struct {
	Currency  string    `json:"currency"`
	Address   string    `json:"address"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChargeFromPayment rebuilds the charge view from a crypto Payment.
func ChargeFromPayment(p *payment.Payment) *CryptoCharge {
	if p == nil || p.Provider != payment.ProviderCrypto {
		return nil
	}
	c := &CryptoCharge{}
	if p.ChargeID != nil {
		c.ChargeID = *p.ChargeID
	}
	if p.CryptoCurrency != nil {
		c.CryptoCurrency = *p.CryptoCurrency
	}
	if p.CryptoAmount != nil {
		c.CryptoAmount = *p.CryptoAmount
	}
	if p.CryptoAddress != nil {
		c.PaymentAddress = *p.CryptoAddress
	}
	if p.ExpiresAt != nil {
		c.ExpiresAt = *p.ExpiresAt
	}
	return c
}
