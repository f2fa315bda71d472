package mysql

import (
	"context"
	"time"

	loanDomain "loan-settlement-engine/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, a *loanDomain.Application) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *LoanRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*loanDomain.Application, error) {
	var out loanDomain.Application
	res := r.db.WithContext(ctx).Where("tracking_number = ?", trackingNumber).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByTrackingNumberForUpdate(ctx context.Context, trackingNumber string) (*loanDomain.Application, error) {
	var out loanDomain.Application
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tracking_number = ?", trackingNumber).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Application, error) {
	var out loanDomain.Application
	res := r.db.WithContext(ctx).First(&out, id)
	return &out, res.Error
}

func (r *LoanRepository) TrackingNumberExists(ctx context.Context, trackingNumber string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&loanDomain.Application{}).
		Where("tracking_number = ?", trackingNumber).
		Count(&n).Error
	return n > 0, err
}

func (r *LoanRepository) FindByIdentity(ctx context.Context, email, ssn string) ([]loanDomain.Application, error) {
	var out []loanDomain.Application
	err := r.db.WithContext(ctx).
		Where("email = ? AND ssn = ?", email, ssn).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// transitionColumns are the only columns a status change may write.
var transitionColumns = []string{
	"status", "status_updated_at", "approved_amount", "processing_fee_amount",
	"rejection_reason", "reviewed_by", "approved_at", "fee_paid_at", "disbursed_at",
	"active_identity",
}

func (r *LoanRepository) Transition(ctx context.Context, a *loanDomain.Application, from loanDomain.Status) error {
	res := r.db.WithContext(ctx).
		Model(a).
		Where("status = ?", from).
		Select(transitionColumns).
		Updates(a)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return loanDomain.ErrStaleStatus.With("application %s is no longer %s", a.TrackingNumber, from)
	}
	return nil
}

func (r *LoanRepository) ListAwaitingFee(ctx context.Context, approvedBefore time.Time, limit int) ([]loanDomain.Application, error) {
	var out []loanDomain.Application
	err := r.db.WithContext(ctx).
		Where("status = ? AND approved_at < ? AND fee_reminder_sent_at IS NULL", loanDomain.StatusApproved, approvedBefore).
		Order("approved_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ClaimFeeReminder stamps fee_reminder_sent_at once; false means another run already claimed it.
func (r *LoanRepository) ClaimFeeReminder(ctx context.Context, id uint64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Application{}).
		Where("id = ? AND fee_reminder_sent_at IS NULL", id).
		Update("fee_reminder_sent_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
