package wallet

import "context"

type Repository interface {
	// GetByCurrency returns gorm.ErrRecordNotFound when nothing is configured.
	GetByCurrency(ctx context.Context, currency string) (*Wallet, error)
	// Upsert replaces the address for w.Currency.
	Upsert(ctx context.Context, w *Wallet) error
}
