package mysql

import (
	"context"

	"loan-settlement-engine/internal/domain/loan"
	"loan-settlement-engine/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

// ReposFor binds every repository to db (a tx or the root handle).
func ReposFor(db *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:         &LoanRepository{db: db},
		Payments:      &PaymentRepository{db: db},
		Disbursements: &DisbursementRepository{db: db},
		Fees:          &FeeRepository{db: db},
		OTPs:          &OTPRepository{db: db},
		Wallets:       &WalletRepository{db: db},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ReposFor(tx))
	})
}

func (u *GormUoW) WithinApplicationTx(ctx context.Context, trackingNumber string, fn func(r uow.Repos, a *loan.Application) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := ReposFor(tx)
		// lock the application row up-front to prevent races
		a, err := r.Loans.GetByTrackingNumberForUpdate(ctx, trackingNumber)
		if err != nil {
			return err
		}
		return fn(r, a)
	})
}
