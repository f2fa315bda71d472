package loan

import (
	"time"

	"loan-settlement-engine/internal/domain/disbursement"
	"loan-settlement-engine/internal/domain/loan"
	"loan-settlement-engine/internal/domain/payment"
	paymentuc "loan-settlement-engine/internal/usecase/payment"
)

type SubmitInput struct {
	UserID          string  `json:"user_id"`
	ApplicantName   string  `json:"applicant_name" validate:"required,max=200"`
	Email           string  `json:"email" validate:"required,email"`
	SSN             string  `json:"ssn" validate:"required,ssn"`
	Phone           string  `json:"phone" validate:"omitempty,max=32"`
	Purpose         string  `json:"purpose" validate:"omitempty,max=255"`
	DocumentID      *string `json:"document_id"`
	RequestedAmount int64   `json:"requested_amount" validate:"required,gt=0"`
	Currency        string  `json:"currency" validate:"omitempty,currency"`
}

type ApproveInput struct {
	ApprovedAmount int64 `json:"approved_amount" validate:"required,gt=0"`
}

type RejectInput struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type InitiatePaymentInput struct {
	Provider       string `json:"provider" validate:"required,oneof=card crypto"`
	CryptoCurrency string `json:"crypto_currency" validate:"required_if=Provider crypto"`
	PaymentMethod  string `json:"payment_method" validate:"required_if=Provider card"`
}

type VerifyPaymentInput struct {
	TxHash        string `json:"tx_hash" validate:"omitempty,txhash"`
	PaymentMethod string `json:"payment_method"`
}

type DisburseInput struct {
	BankName          string `json:"bank_name" validate:"required,max=120"`
	BankAccountNumber string `json:"bank_account_number" validate:"required,max=34"`
	BankRoutingNumber string `json:"bank_routing_number" validate:"omitempty,max=20"`
	AccountHolderName string `json:"account_holder_name" validate:"required,max=200"`
}

type DisbursementUpdateInput struct {
	Status      string `json:"status" validate:"required,oneof=processing completed failed"`
	ExternalRef string `json:"external_ref" validate:"omitempty,max=128"`
}

type ApplicationDTO struct {
	TrackingNumber       string     `json:"tracking_number"`
	UserID               string     `json:"user_id,omitempty"`
	ApplicantName        string     `json:"applicant_name"`
	Email                string     `json:"email"`
	RequestedAmount      int64      `json:"requested_amount"`
	ApprovedAmount       *int64     `json:"approved_amount"`
	ProcessingFeeAmount  *int64     `json:"processing_fee_amount"`
	Currency             string     `json:"currency"`
	Status               string     `json:"status"`
	RejectionReason      *string    `json:"rejection_reason,omitempty"`
	DisbursementEligible bool       `json:"disbursement_eligible"`
	CreatedAt            time.Time  `json:"created_at"`
	ApprovedAt           *time.Time `json:"approved_at,omitempty"`
	FeePaidAt            *time.Time `json:"fee_paid_at,omitempty"`
	DisbursedAt          *time.Time `json:"disbursed_at,omitempty"`
}

type PaymentDTO struct {
	PaymentID             string                  `json:"payment_id"`
	Provider              string                  `json:"provider"`
	Status                string                  `json:"status"`
	Amount                int64                   `json:"amount"`
	Currency              string                  `json:"currency"`
	CardLast4             *string                 `json:"card_last4,omitempty"`
	CardBrand             *string                 `json:"card_brand,omitempty"`
	Charge                *paymentuc.CryptoCharge `json:"charge,omitempty"`
	TxHash                *string                 `json:"tx_hash,omitempty"`
	Confirmations         int                     `json:"confirmations"`
	RequiredConfirmations int                     `json:"required_confirmations,omitempty"`
	FailureReason         *string                 `json:"failure_reason,omitempty"`
	SucceededAt           *time.Time              `json:"succeeded_at,omitempty"`
	CreatedAt             time.Time               `json:"created_at"`
}

// PaymentResult is returned by the calls that open or verify a payment.
type PaymentResult struct {
	ApplicationStatus string             `json:"application_status"`
	Payment           PaymentDTO         `json:"payment"`
	Outcome           *paymentuc.Outcome `json:"outcome,omitempty"`
}

type DisbursementDTO struct {
	DisbursementID    string     `json:"disbursement_id"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	BankName          string     `json:"bank_name"`
	AccountHolderName string     `json:"account_holder_name"`
	AccountLast4      string     `json:"account_last4"`
	Status            string     `json:"status"`
	ExternalRef       *string    `json:"external_ref,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toApplicationDTO(a *loan.Application) *ApplicationDTO {
	return &ApplicationDTO{
		TrackingNumber:       a.TrackingNumber,
		UserID:               a.UserID,
		ApplicantName:        a.ApplicantName,
		Email:                a.Email,
		RequestedAmount:      a.RequestedAmount,
		ApprovedAmount:       a.ApprovedAmount,
		ProcessingFeeAmount:  a.ProcessingFeeAmount,
		Currency:             a.Currency,
		Status:               string(a.Status),
		RejectionReason:      a.RejectionReason,
		DisbursementEligible: a.Status == loan.StatusFeePaid,
		CreatedAt:            a.CreatedAt,
		ApprovedAt:           a.ApprovedAt,
		FeePaidAt:            a.FeePaidAt,
		DisbursedAt:          a.DisbursedAt,
	}
}

func toPaymentDTO(p *payment.Payment) PaymentDTO {
	return PaymentDTO{
		PaymentID:             p.PaymentID,
		Provider:              string(p.Provider),
		Status:                string(p.Status),
		Amount:                p.Amount,
		Currency:              p.Currency,
		CardLast4:             p.CardLast4,
		CardBrand:             p.CardBrand,
		Charge:                paymentuc.ChargeFromPayment(p),
		TxHash:                p.TxHash,
		Confirmations:         p.Confirmations,
		RequiredConfirmations: p.RequiredConfirmations,
		FailureReason:         p.FailureReason,
		SucceededAt:           p.SucceededAt,
		CreatedAt:             p.CreatedAt,
	}
}

func toDisbursementDTO(d *disbursement.Disbursement, trackingNumber string) *DisbursementDTO {
	last4 := d.BankAccountNumber
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	return &DisbursementDTO{
		DisbursementID:    d.DisbursementID,
		TrackingNumber:    trackingNumber,
		Amount:            d.Amount,
		Currency:          d.Currency,
		BankName:          d.BankName,
		AccountHolderName: d.AccountHolderName,
		AccountLast4:      last4,
		Status:            string(d.Status),
		ExternalRef:       d.ExternalRef,
		CompletedAt:       d.CompletedAt,
		CreatedAt:         d.CreatedAt,
	}
}
