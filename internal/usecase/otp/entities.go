package otp

import "time"

type IssueInput struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Purpose    string `json:"purpose" validate:"required,oneof=signup login reset"`
}

type VerifyInput struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Purpose    string `json:"purpose" validate:"omitempty,oneof=signup login reset"`
	Code       string `json:"code" validate:"required,len=6,numeric"`
}

// IssueResult carries the code for out-of-band delivery; never echo it to the requester.
type IssueResult struct {
	Identifier string    `json:"identifier"`
	Purpose    string    `json:"purpose"`
	Code       string    `json:"-"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type VerifyResult struct {
	Identifier string `json:"identifier"`
	Purpose    string `json:"purpose"`
	Verified   bool   `json:"verified"`
}
