package fee

import (
	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/fee"

	"github.com/shopspring/decimal"
)

const basisPointsPerUnit = 10_000

var (
	errInvalidAmount = apperr.Validation("approved_amount", "invalid_amount", "approved amount must be positive")
	errInvalidMode   = apperr.Configuration("invalid_fee_configuration", "unknown fee calculation mode")
)

// Compute returns the processing fee in minor units for approvedAmount.
// Percentage mode rounds half away from zero.
func Compute(approvedAmount int64, cfg *fee.Configuration) (int64, error) {
	if cfg == nil || !cfg.IsActive {
		return 0, fee.ErrNoActiveConfiguration
	}
	if approvedAmount <= 0 {
		return 0, errInvalidAmount
	}
	switch cfg.Mode {
	case fee.ModePercentage:
		if cfg.PercentageRate < 0 {
			return 0, errInvalidMode.With("negative percentage rate %d", cfg.PercentageRate)
		}
		v := decimal.NewFromInt(approvedAmount).
			Mul(decimal.NewFromInt(cfg.PercentageRate)).
			Div(decimal.NewFromInt(basisPointsPerUnit)).
			Round(0)
		return v.IntPart(), nil
	case fee.ModeFixed:
		if cfg.FixedFeeAmount < 0 {
			return 0, errInvalidMode.With("negative fixed fee %d", cfg.FixedFeeAmount)
		}
		return cfg.FixedFeeAmount, nil
	default:
		return 0, errInvalidMode.With("unknown fee calculation mode %q", cfg.Mode)
	}
}
