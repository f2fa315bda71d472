package fee

import (
	"context"
	"errors"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/fee"
	"loan-settlement-engine/internal/domain/uow"
	"loan-settlement-engine/internal/infrastructure/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Usecase struct {
	fees fee.Repository
	uow  uow.UnitOfWork
	log  *zap.Logger
}

func NewUsecase(fees fee.Repository, tx uow.UnitOfWork, log *zap.Logger) *Usecase {
	return &Usecase{fees: fees, uow: tx, log: logger.OrNop(log)}
}

// Active loads the active configuration, ErrNoActiveConfiguration if none.
func (u *Usecase) Active(ctx context.Context) (*fee.Configuration, error) {
	return ActiveFrom(ctx, u.fees)
}

// ActiveFrom reads through repo, so callers inside a transaction see their own view.
func ActiveFrom(ctx context.Context, repo fee.Repository) (*fee.Configuration, error) {
	cfg, err := repo.GetActive(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fee.ErrNoActiveConfiguration
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (u *Usecase) Get(ctx context.Context) (*ConfigurationDTO, error) {
	cfg, err := u.Active(ctx)
	if err != nil {
		return nil, err
	}
	return toDTO(cfg), nil
}

// Configure activates a new configuration version and deactivates the previous one.
func (u *Usecase) Configure(ctx context.Context, in ConfigureInput, actorID string) (*ConfigurationDTO, error) {
	cfg := &fee.Configuration{
		Mode:           fee.Mode(in.Mode),
		PercentageRate: in.PercentageRate,
		FixedFeeAmount: in.FixedFeeAmount,
		IsActive:       true,
		CreatedBy:      actorID,
	}
	switch cfg.Mode {
	case fee.ModePercentage:
		if in.PercentageRate < 0 || in.PercentageRate > basisPointsPerUnit {
			return nil, apperr.Validation("percentage_rate", "invalid_rate", "percentage rate must be between 0 and 10000 basis points")
		}
		cfg.FixedFeeAmount = 0
	case fee.ModeFixed:
		if in.FixedFeeAmount < 0 {
			return nil, apperr.Validation("fixed_fee_amount", "invalid_amount", "fixed fee must not be negative")
		}
		cfg.PercentageRate = 0
	default:
		return nil, apperr.Validation("calculation_mode", "invalid_mode", "calculation mode must be percentage or fixed")
	}

	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Fees.DeactivateAll(ctx); err != nil {
			return err
		}
		return r.Fees.Create(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("fee configuration activated",
		zap.Uint64("id", cfg.ID),
		zap.String("mode", string(cfg.Mode)),
		zap.Int64("percentage_rate", cfg.PercentageRate),
		zap.Int64("fixed_fee_amount", cfg.FixedFeeAmount),
		zap.String("actor", actorID))
	return toDTO(cfg), nil
}

func toDTO(c *fee.Configuration) *ConfigurationDTO {
	return &ConfigurationDTO{
		ID:             c.ID,
		Mode:           string(c.Mode),
		PercentageRate: c.PercentageRate,
		FixedFeeAmount: c.FixedFeeAmount,
		IsActive:       c.IsActive,
		CreatedBy:      c.CreatedBy,
		CreatedAt:      c.CreatedAt,
	}
}
