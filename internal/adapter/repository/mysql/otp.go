package mysql

import (
	"context"
	"time"

	otpDomain "loan-settlement-engine/internal/domain/otp"

	"gorm.io/gorm"
)

type OTPRepository struct{ db *gorm.DB }

func NewOTPRepository(db *gorm.DB) *OTPRepository { return &OTPRepository{db: db} }

func (r *OTPRepository) Create(ctx context.Context, c *otpDomain.Code) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *OTPRepository) InvalidateUnverified(ctx context.Context, identifier string, purpose otpDomain.Purpose) error {
	return r.db.WithContext(ctx).
		Model(&otpDomain.Code{}).
		Where("identifier = ? AND purpose = ? AND verified = ?", identifier, purpose, false).
		Update("verified", true).Error
}

func (r *OTPRepository) LatestActive(ctx context.Context, identifier string, purpose otpDomain.Purpose, now time.Time) (*otpDomain.Code, error) {
	var out otpDomain.Code
	res := r.db.WithContext(ctx).
		Where("identifier = ? AND purpose = ? AND verified = ? AND expires_at > ?", identifier, purpose, false, now).
		Order("created_at DESC, id DESC").
		First(&out)
	return &out, res.Error
}

func (r *OTPRepository) LatestUnexpired(ctx context.Context, identifier string, purpose otpDomain.Purpose, now time.Time) (*otpDomain.Code, error) {
	var out otpDomain.Code
	res := r.db.WithContext(ctx).
		Where("identifier = ? AND purpose = ? AND expires_at > ?", identifier, purpose, now).
		Order("created_at DESC, id DESC").
		First(&out)
	return &out, res.Error
}

func (r *OTPRepository) IncrementAttempts(ctx context.Context, id uint64, max int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&otpDomain.Code{}).
		Where("id = ? AND attempts < ?", id, max).
		UpdateColumn("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *OTPRepository) MarkVerified(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&otpDomain.Code{}).
		Where("id = ? AND verified = ?", id, false).
		Update("verified", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *OTPRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&otpDomain.Code{})
	return res.RowsAffected, res.Error
}
