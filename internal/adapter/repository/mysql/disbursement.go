package mysql

import (
	"context"

	disbursementDomain "loan-settlement-engine/internal/domain/disbursement"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DisbursementRepository struct{ db *gorm.DB }

func NewDisbursementRepository(db *gorm.DB) *DisbursementRepository {
	return &DisbursementRepository{db: db}
}

func (r *DisbursementRepository) Create(ctx context.Context, d *disbursementDomain.Disbursement) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DisbursementRepository) GetByApplicationID(ctx context.Context, applicationID uint64) (*disbursementDomain.Disbursement, error) {
	var out disbursementDomain.Disbursement
	res := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		First(&out)
	return &out, res.Error
}

func (r *DisbursementRepository) GetByDisbursementID(ctx context.Context, disbursementID string) (*disbursementDomain.Disbursement, error) {
	var out disbursementDomain.Disbursement
	res := r.db.WithContext(ctx).
		Where("disbursement_id = ?", disbursementID).
		First(&out)
	return &out, res.Error
}

func (r *DisbursementRepository) GetByDisbursementIDForUpdate(ctx context.Context, disbursementID string) (*disbursementDomain.Disbursement, error) {
	var out disbursementDomain.Disbursement
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("disbursement_id = ?", disbursementID).
		First(&out)
	return &out, res.Error
}

func (r *DisbursementRepository) Save(ctx context.Context, d *disbursementDomain.Disbursement) error {
	return r.db.WithContext(ctx).Save(d).Error
}
