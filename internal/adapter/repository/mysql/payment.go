package mysql

import (
	"context"
	"time"

	paymentDomain "loan-settlement-engine/internal/domain/payment"

	"gorm.io/gorm"
)

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) Create(ctx context.Context, p *paymentDomain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&out)
	return &out, res.Error
}

func (r *PaymentRepository) ListByApplicationID(ctx context.Context, applicationID uint64) ([]paymentDomain.Payment, error) {
	var out []paymentDomain.Payment
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *PaymentRepository) GetSucceededByApplicationID(ctx context.Context, applicationID uint64) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Where("application_id = ? AND status = ?", applicationID, paymentDomain.StatusSucceeded).
		First(&out)
	return &out, res.Error
}

func (r *PaymentRepository) CountSucceededByApplicationID(ctx context.Context, applicationID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&paymentDomain.Payment{}).
		Where("application_id = ? AND status = ?", applicationID, paymentDomain.StatusSucceeded).
		Count(&n).Error
	return n, err
}

func (r *PaymentRepository) ExistsTxHash(ctx context.Context, txHash string, exceptPaymentID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&paymentDomain.Payment{}).
		Where("tx_hash = ? AND payment_id <> ?", txHash, exceptPaymentID).
		Count(&n).Error
	return n > 0, err
}

var paymentMutableColumns = []string{
	"status", "processor_ref", "card_last4", "card_brand", "tx_hash",
	"confirmations", "required_confirmations", "last_verification", "failure_reason",
	"succeeded_at", "succeeded_application_id",
}

func (r *PaymentRepository) Update(ctx context.Context, p *paymentDomain.Payment, from paymentDomain.Status) error {
	res := r.db.WithContext(ctx).
		Model(p).
		Where("status = ?", from).
		Select(paymentMutableColumns).
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return paymentDomain.ErrStaleStatus.With("payment %s is no longer %s", p.PaymentID, from)
	}
	return nil
}

func (r *PaymentRepository) ListExpiredOpen(ctx context.Context, now time.Time, limit int) ([]paymentDomain.Payment, error) {
	var out []paymentDomain.Payment
	err := r.db.WithContext(ctx).
		Where("provider = ? AND status = ? AND tx_hash IS NULL AND expires_at < ?",
			paymentDomain.ProviderCrypto, paymentDomain.StatusPending, now).
		Order("expires_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *PaymentRepository) ListUnseenOpen(ctx context.Context, cutoff time.Time, limit int) ([]paymentDomain.Payment, error) {
	var out []paymentDomain.Payment
	err := r.db.WithContext(ctx).
		Where("provider = ? AND status = ? AND tx_hash IS NOT NULL AND last_verification = ? AND expires_at < ?",
			paymentDomain.ProviderCrypto, paymentDomain.StatusProcessing, paymentDomain.VerificationNotFound, cutoff).
		Order("expires_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
