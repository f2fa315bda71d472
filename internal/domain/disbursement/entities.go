package disbursement

import (
	"time"

	"loan-settlement-engine/internal/domain/apperr"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	ErrNotFound          = apperr.NotFound("disbursement_not_found", "disbursement not found")
	ErrAlreadyExists     = apperr.Conflict("disbursement_exists", "application already has a disbursement")
	ErrInvalidTransition = apperr.Conflict("invalid_disbursement_transition", "disbursement status change not allowed")
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanMove reports whether a disbursement may go from one status to another.
func CanMove(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Disbursement pays out an application's approved amount. At most one per application.
type Disbursement struct {
	ID             uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	DisbursementID string `gorm:"column:disbursement_id;type:char(32);not null;uniqueIndex:ux_disbursements_disbursement_id" json:"disbursement_id"`
	ApplicationID  uint64 `gorm:"column:application_id;not null;uniqueIndex:ux_disbursements_application" json:"-"`

	Amount   int64  `gorm:"column:amount;not null" json:"amount"`
	Currency string `gorm:"column:currency;size:3;not null" json:"currency"`

	BankName          string `gorm:"column:bank_name;size:120;not null" json:"bank_name"`
	BankAccountNumber string `gorm:"column:bank_account_number;size:34;not null" json:"bank_account_number"`
	BankRoutingNumber string `gorm:"column:bank_routing_number;size:20" json:"bank_routing_number,omitempty"`
	AccountHolderName string `gorm:"column:account_holder_name;size:200;not null" json:"account_holder_name"`

	Status      Status  `gorm:"column:status;size:20;not null" json:"status"`
	ExternalRef *string `gorm:"column:external_ref;size:128" json:"external_ref,omitempty"`
	InitiatedBy string  `gorm:"column:initiated_by;size:64;not null" json:"initiated_by"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Disbursement) TableName() string { return "disbursements" }
