package payment

import (
	"strings"
	"time"

	"loan-settlement-engine/internal/domain/apperr"
)

type Provider string

const (
	ProviderCard   Provider = "card_processor"
	ProviderCrypto Provider = "crypto"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var (
	ErrNotFound         = apperr.NotFound("payment_not_found", "payment not found")
	ErrAlreadySucceeded = apperr.Conflict("payment_already_succeeded", "fee already paid for this application")
	ErrTxHashReused     = apperr.Conflict("tx_hash_reused", "transaction hash already backs another payment")
	ErrTxHashMismatch   = apperr.Conflict("tx_hash_mismatch", "payment already tracks a different transaction hash")
	ErrStaleStatus      = apperr.Conflict("payment_stale_status", "payment status changed concurrently")
	ErrClosed           = apperr.Conflict("payment_closed", "payment is no longer open")
	ErrChargeExpired    = apperr.Conflict("charge_expired", "crypto charge expired; open a new payment")
)

// Payment is one attempt at paying an application's processing fee.
type Payment struct {
	ID            uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	PaymentID     string `gorm:"column:payment_id;type:char(32);not null;uniqueIndex:ux_payments_payment_id" json:"payment_id"`
	ApplicationID uint64 `gorm:"column:application_id;not null;index:idx_payments_application" json:"-"`

	Amount   int64    `gorm:"column:amount;not null" json:"amount"`
	Currency string   `gorm:"column:currency;size:3;not null" json:"currency"`
	Provider Provider `gorm:"column:provider;size:20;not null" json:"provider"`
	Status   Status   `gorm:"column:status;size:20;not null;index:idx_payments_status" json:"status"`

	// card
	CardLast4    *string `gorm:"column:card_last4;size:4" json:"card_last4,omitempty"`
	CardBrand    *string `gorm:"column:card_brand;size:20" json:"card_brand,omitempty"`
	ProcessorRef *string `gorm:"column:processor_ref;size:128" json:"processor_ref,omitempty"`

	// crypto
	ChargeID              *string `gorm:"column:charge_id;size:36" json:"charge_id,omitempty"`
	CryptoCurrency        *string `gorm:"column:crypto_currency;size:10" json:"crypto_currency,omitempty"`
	CryptoAddress         *string `gorm:"column:crypto_address;size:128" json:"crypto_address,omitempty"`
	CryptoAmount          *string `gorm:"column:crypto_amount;size:64" json:"crypto_amount,omitempty"`
	TxHash                *string `gorm:"column:tx_hash;size:80;uniqueIndex:ux_payments_tx_hash" json:"tx_hash,omitempty"`
	Confirmations         int     `gorm:"column:confirmations;not null;default:0" json:"confirmations"`
	RequiredConfirmations int     `gorm:"column:required_confirmations;not null;default:0" json:"required_confirmations"`
	// LastVerification is the most recent chain answer for TxHash.
	LastVerification *VerificationStatus `gorm:"column:last_verification;size:32" json:"last_verification,omitempty"`

	FailureReason *string    `gorm:"column:failure_reason;size:64" json:"failure_reason,omitempty"`
	ExpiresAt     *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	SucceededAt   *time.Time `gorm:"column:succeeded_at" json:"succeeded_at,omitempty"`

	// SucceededApplicationID is set only while Status is succeeded; the unique
	// index makes a second succeeded payment for one application impossible.
	SucceededApplicationID *uint64 `gorm:"column:succeeded_application_id;uniqueIndex:ux_payments_succeeded_application" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// IsOpen reports whether verification may still move the payment.
func (p *Payment) IsOpen() bool {
	return p.Status == StatusPending || p.Status == StatusProcessing
}

// MarkSucceeded stamps the fields that go with a succeeded status.
func (p *Payment) MarkSucceeded(at time.Time) {
	p.Status = StatusSucceeded
	p.SucceededAt = &at
	appID := p.ApplicationID
	p.SucceededApplicationID = &appID
	p.FailureReason = nil
}

func (p *Payment) MarkFailed(reason string) {
	p.Status = StatusFailed
	p.FailureReason = &reason
}

// MarkCancelled closes an abandoned or expired payment.
func (p *Payment) MarkCancelled(reason string) {
	p.Status = StatusCancelled
	p.FailureReason = &reason
}

// Unseen reports whether the submitted transaction has never been found on chain.
func (p *Payment) Unseen() bool {
	return p.Provider == ProviderCrypto && p.TxHash != nil &&
		p.LastVerification != nil && *p.LastVerification == VerificationNotFound
}

// UnseenTooLong reports whether the submitted transaction is still missing from
// the chain grace after the charge expired.
func (p *Payment) UnseenTooLong(now time.Time, grace time.Duration) bool {
	return p.IsOpen() && p.Unseen() && p.ExpiresAt != nil && !now.Before(p.ExpiresAt.Add(grace))
}

// NormalizeTxHash trims and lower-cases a transaction hash. Hex hashes compare
// case-insensitively, so the stored form is always lower case.
func NormalizeTxHash(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Expired reports whether a crypto charge ran out before any transaction was submitted.
func (p *Payment) Expired(now time.Time) bool {
	return p.Provider == ProviderCrypto && p.TxHash == nil && p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}
