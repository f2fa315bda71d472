package mysql

import (
	"loan-settlement-engine/internal/domain/disbursement"
	"loan-settlement-engine/internal/domain/fee"
	"loan-settlement-engine/internal/domain/loan"
	"loan-settlement-engine/internal/domain/otp"
	"loan-settlement-engine/internal/domain/payment"
	"loan-settlement-engine/internal/domain/wallet"
)

// Models lists every persisted entity, in dependency order.
func Models() []any {
	return []any{
		&loan.Application{},
		&payment.Payment{},
		&disbursement.Disbursement{},
		&fee.Configuration{},
		&otp.Code{},
		&wallet.Wallet{},
	}
}
