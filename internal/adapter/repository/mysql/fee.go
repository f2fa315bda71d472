package mysql

import (
	"context"

	feeDomain "loan-settlement-engine/internal/domain/fee"

	"gorm.io/gorm"
)

type FeeRepository struct{ db *gorm.DB }

func NewFeeRepository(db *gorm.DB) *FeeRepository { return &FeeRepository{db: db} }

func (r *FeeRepository) GetActive(ctx context.Context) (*feeDomain.Configuration, error) {
	var out feeDomain.Configuration
	res := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id DESC").
		First(&out)
	return &out, res.Error
}

func (r *FeeRepository) DeactivateAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&feeDomain.Configuration{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error
}

func (r *FeeRepository) Create(ctx context.Context, c *feeDomain.Configuration) error {
	return r.db.WithContext(ctx).Create(c).Error
}
