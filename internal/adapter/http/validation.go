package http

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error      string       `json:"error"`
	Reason     string       `json:"reason,omitempty"`
	Field      string       `json:"field,omitempty"`
	Existing   string       `json:"existing,omitempty"`
	RetryAfter int          `json:"retry_after,omitempty"`
	Details    []FieldError `json:"details,omitempty"`
}

var (
	reCurrency = regexp.MustCompile(`^[A-Za-z]{3,5}$`)
	reTxHash   = regexp.MustCompile(`^(0x)?[A-Fa-f0-9]{64}$`)
)

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()
	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// ssn = nine digits once separators are dropped
	_ = v.RegisterValidation("ssn", func(fl validator.FieldLevel) bool {
		n := 0
		for _, r := range fl.Field().String() {
			switch {
			case unicode.IsDigit(r):
				n++
			case r == '-' || r == ' ':
			default:
				return false
			}
		}
		return n == 9
	})
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return reCurrency.MatchString(fl.Field().String())
	})
	// 64 hex chars, with or without 0x
	_ = v.RegisterValidation("txhash", func(fl validator.FieldLevel) bool {
		return reTxHash.MatchString(strings.TrimSpace(fl.Field().String()))
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// ToFieldErrors maps validator.ValidationErrors to []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required", "required_if":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "email":
			out = append(out, FieldError{Field: field, Message: "must be a valid email address"})
		case "ssn":
			out = append(out, FieldError{Field: field, Message: "must contain exactly 9 digits"})
		case "currency":
			out = append(out, FieldError{Field: field, Message: "must be a currency code"})
		case "txhash":
			out = append(out, FieldError{Field: field, Message: "must be a 64-character hex transaction hash"})
		case "oneof":
			out = append(out, FieldError{Field: field, Message: "must be one of: " + e.Param()})
		case "gt":
			out = append(out, FieldError{Field: field, Message: "must be greater than " + e.Param()})
		case "gte":
			out = append(out, FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "lte":
			out = append(out, FieldError{Field: field, Message: "must be less than or equal to " + e.Param()})
		case "max":
			out = append(out, FieldError{Field: field, Message: "must be at most " + e.Param() + " characters"})
		case "len":
			out = append(out, FieldError{Field: field, Message: "must be exactly " + e.Param() + " characters"})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
