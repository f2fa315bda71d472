package otp

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, c *Code) error
	// InvalidateUnverified marks every unverified code for the pair as verified.
	InvalidateUnverified(ctx context.Context, identifier string, purpose Purpose) error
	// LatestActive returns the newest unverified, unexpired code; gorm.ErrRecordNotFound if none.
	LatestActive(ctx context.Context, identifier string, purpose Purpose, now time.Time) (*Code, error)
	// LatestUnexpired ignores the verified flag.
	LatestUnexpired(ctx context.Context, identifier string, purpose Purpose, now time.Time) (*Code, error)
	// IncrementAttempts bumps the counter only while it is below max and reports whether it did.
	IncrementAttempts(ctx context.Context, id uint64, max int) (bool, error)
	// MarkVerified flips an unverified code; false when it was already verified.
	MarkVerified(ctx context.Context, id uint64) (bool, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
