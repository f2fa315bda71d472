package loan

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a *Application) error
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*Application, error)
	// GetByTrackingNumberForUpdate locks the row for the rest of the transaction.
	GetByTrackingNumberForUpdate(ctx context.Context, trackingNumber string) (*Application, error)
	GetByID(ctx context.Context, id uint64) (*Application, error)
	TrackingNumberExists(ctx context.Context, trackingNumber string) (bool, error)

	// FindByIdentity returns every application for the normalized (email, ssn) pair.
	FindByIdentity(ctx context.Context, email, ssn string) ([]Application, error)

	// Transition persists a's new status (and the fields set alongside it) only if the
	// stored status still equals from. Returns ErrStaleStatus otherwise.
	Transition(ctx context.Context, a *Application, from Status) error

	// ListAwaitingFee returns approved applications approved before cutoff that were never reminded.
	ListAwaitingFee(ctx context.Context, approvedBefore time.Time, limit int) ([]Application, error)
	// ClaimFeeReminder stamps the reminder time once; false when already claimed.
	ClaimFeeReminder(ctx context.Context, id uint64, at time.Time) (bool, error)
}
