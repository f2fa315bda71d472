package fee

import (
	"time"

	"loan-settlement-engine/internal/domain/apperr"
)

type Mode string

const (
	ModePercentage Mode = "percentage"
	ModeFixed      Mode = "fixed"
)

var ErrNoActiveConfiguration = apperr.Configuration("no_active_fee_configuration", "no active fee configuration")

// Configuration is one version of the fee rules. Only the active row is read.
type Configuration struct {
	ID             uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Mode           Mode      `gorm:"column:calculation_mode;size:20;not null" json:"calculation_mode"`
	PercentageRate int64     `gorm:"column:percentage_rate;not null;default:0" json:"percentage_rate"` // basis points
	FixedFeeAmount int64     `gorm:"column:fixed_fee_amount;not null;default:0" json:"fixed_fee_amount"`
	IsActive       bool      `gorm:"column:is_active;not null;default:false;index:idx_fee_configurations_active" json:"is_active"`
	CreatedBy      string    `gorm:"column:created_by;size:64" json:"created_by"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Configuration) TableName() string { return "fee_configurations" }
