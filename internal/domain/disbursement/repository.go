package disbursement

import "context"

type Repository interface {
	// Create a disbursement (DB uniqueness ensures at most one per application)
	Create(ctx context.Context, d *Disbursement) error

	GetByApplicationID(ctx context.Context, applicationID uint64) (*Disbursement, error)

	// Get by public disbursement_id
	GetByDisbursementID(ctx context.Context, disbursementID string) (*Disbursement, error)
	GetByDisbursementIDForUpdate(ctx context.Context, disbursementID string) (*Disbursement, error)

	Save(ctx context.Context, d *Disbursement) error
}
