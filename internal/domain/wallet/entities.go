package wallet

import (
	"time"

	"loan-settlement-engine/internal/domain/apperr"
)

var ErrNotConfigured = apperr.Configuration("wallet_not_configured", "no receiving wallet configured for currency")

// Wallet is the admin-configured receiving address for one crypto currency.
type Wallet struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Currency  string    `gorm:"column:currency;size:10;not null;uniqueIndex:ux_crypto_wallets_currency" json:"currency"`
	Address   string    `gorm:"column:address;size:128;not null" json:"address"`
	UpdatedBy string    `gorm:"column:updated_by;size:64" json:"updated_by"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string { return "crypto_wallets" }
