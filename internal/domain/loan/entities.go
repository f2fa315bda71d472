package loan

import (
	"time"
)

// Application is a consumer loan application. Rows are never hard-deleted.
type Application struct {
	ID             uint64 `gorm:"primaryKey;column:id" json:"-"`
	TrackingNumber string `gorm:"size:40;uniqueIndex:ux_applications_tracking_number;not null" json:"tracking_number"`
	UserID         string `gorm:"size:64;index:idx_applications_user" json:"user_id"`

	// applicant snapshot at submission
	ApplicantName string  `gorm:"size:200" json:"applicant_name"`
	Email         string  `gorm:"size:254;index:idx_applications_identity,priority:1" json:"email"`
	SSN           string  `gorm:"column:ssn;size:16;index:idx_applications_identity,priority:2" json:"-"`
	Phone         string  `gorm:"size:32" json:"phone"`
	Purpose       string  `gorm:"size:255" json:"purpose"`
	DocumentID    *string `gorm:"size:64" json:"document_id,omitempty"`

	RequestedAmount     int64  `gorm:"not null" json:"requested_amount"`
	ApprovedAmount      *int64 `json:"approved_amount"`
	ProcessingFeeAmount *int64 `json:"processing_fee_amount"`
	Currency            string `gorm:"size:3;default:'USD'" json:"currency"`

	// ActiveIdentity holds "email|ssn" while the application is live and NULL
	// once terminal; the unique index backs the duplicate check.
	ActiveIdentity *string `gorm:"size:300;uniqueIndex:ux_applications_active_identity" json:"-"`

	Status          Status  `gorm:"size:20;index:idx_applications_status;not null" json:"status"`
	RejectionReason *string `gorm:"type:text" json:"rejection_reason,omitempty"`
	ReviewedBy      *string `gorm:"size:64" json:"reviewed_by,omitempty"`

	StatusUpdatedAt   time.Time  `json:"status_updated_at"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	FeePaidAt         *time.Time `json:"fee_paid_at,omitempty"`
	DisbursedAt       *time.Time `json:"disbursed_at,omitempty"`
	FeeReminderSentAt *time.Time `json:"-"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Application) TableName() string { return "loan_applications" }

// HoldIdentity marks the (email, ssn) pair as taken by this application.
func (a *Application) HoldIdentity() {
	key := a.Email + "|" + a.SSN
	a.ActiveIdentity = &key
}

// MoveTo sets the new status and releases the identity on terminal statuses.
func (a *Application) MoveTo(to Status, at time.Time) {
	a.Status = to
	a.StatusUpdatedAt = at
	if to.IsTerminal() {
		a.ActiveIdentity = nil
	}
}

// FeeAmount returns the processing fee, zero before approval.
func (a *Application) FeeAmount() int64 {
	if a.ProcessingFeeAmount == nil {
		return 0
	}
	return *a.ProcessingFeeAmount
}
