package mysql

import (
	"context"

	walletDomain "loan-settlement-engine/internal/domain/wallet"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletRepository struct{ db *gorm.DB }

func NewWalletRepository(db *gorm.DB) *WalletRepository { return &WalletRepository{db: db} }

func (r *WalletRepository) GetByCurrency(ctx context.Context, currency string) (*walletDomain.Wallet, error) {
	var out walletDomain.Wallet
	res := r.db.WithContext(ctx).Where("currency = ?", currency).First(&out)
	return &out, res.Error
}

func (r *WalletRepository) Upsert(ctx context.Context, w *walletDomain.Wallet) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "currency"}},
			DoUpdates: clause.AssignmentColumns([]string{"address", "updated_by", "updated_at"}),
		}).
		Create(w).Error
}
