package fee

import "time"

type ConfigureInput struct {
	Mode           string `json:"calculation_mode" validate:"required,oneof=percentage fixed"`
	PercentageRate int64  `json:"percentage_rate" validate:"gte=0,lte=10000"`
	FixedFeeAmount int64  `json:"fixed_fee_amount" validate:"gte=0"`
}

type ConfigurationDTO struct {
	ID             uint64    `json:"id"`
	Mode           string    `json:"calculation_mode"`
	PercentageRate int64     `json:"percentage_rate"`
	FixedFeeAmount int64     `json:"fixed_fee_amount"`
	IsActive       bool      `json:"is_active"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}
