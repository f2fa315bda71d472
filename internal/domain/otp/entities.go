package otp

import (
	"time"

	"loan-settlement-engine/internal/domain/apperr"
)

type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeLogin  Purpose = "login"
	PurposeReset  Purpose = "reset"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeSignup, PurposeLogin, PurposeReset:
		return true
	}
	return false
}

var (
	ErrNotFound        = apperr.NotFound("otp_not_found", "no active code for this identifier")
	ErrTooManyAttempts = &apperr.Error{Kind: apperr.KindRateLimited, Reason: "too_many_attempts", Msg: "code locked after too many attempts; request a new one"}
	ErrInvalidCode     = apperr.Validation("code", "invalid_code", "code does not match")
)

type Code struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Identifier string    `gorm:"column:identifier;size:254;not null;index:idx_otp_lookup,priority:1"`
	Purpose    Purpose   `gorm:"column:purpose;size:10;not null;index:idx_otp_lookup,priority:2"`
	Code       string    `gorm:"column:code;size:6;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index:idx_otp_expires"`
	Verified   bool      `gorm:"column:verified;not null;default:false"`
	Attempts   int       `gorm:"column:attempts;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Code) TableName() string { return "otp_codes" }
