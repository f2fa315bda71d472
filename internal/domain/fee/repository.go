package fee

import "context"

type Repository interface {
	// GetActive returns gorm.ErrRecordNotFound when no version is active.
	GetActive(ctx context.Context) (*Configuration, error)
	DeactivateAll(ctx context.Context) error
	Create(ctx context.Context, c *Configuration) error
}
