package payment

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	ListByApplicationID(ctx context.Context, applicationID uint64) ([]Payment, error)
	// GetSucceededByApplicationID returns gorm.ErrRecordNotFound when the fee is unpaid.
	GetSucceededByApplicationID(ctx context.Context, applicationID uint64) (*Payment, error)
	CountSucceededByApplicationID(ctx context.Context, applicationID uint64) (int64, error)
	ExistsTxHash(ctx context.Context, txHash string, exceptPaymentID string) (bool, error)

	// Update writes p only if the stored status still equals from; ErrStaleStatus otherwise.
	Update(ctx context.Context, p *Payment, from Status) error

	// ListExpiredOpen returns pending crypto payments whose charge expired before now.
	ListExpiredOpen(ctx context.Context, now time.Time, limit int) ([]Payment, error)
	// ListUnseenOpen returns processing crypto payments whose transaction was
	// last reported not found and whose charge expired before cutoff.
	ListUnseenOpen(ctx context.Context, cutoff time.Time, limit int) ([]Payment, error)
}
