// Package duplicate is the single authority on whether an identity may submit a new application.
package duplicate

import (
	"context"
	"strings"
	"unicode"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/loan"
)

var ErrDuplicateSubmission = apperr.Conflict("duplicate_submission", "an application for this identity is still in progress")

// Finder is the slice of loan.Repository the guard reads.
type Finder interface {
	FindByIdentity(ctx context.Context, email, ssn string) ([]loan.Application, error)
}

type Guard struct{ finder Finder }

func NewGuard(f Finder) *Guard { return &Guard{finder: f} }

// NormalizeEmail lower-cases and trims.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NormalizeSSN keeps digits only, so "123-45-6789" and "123456789" match.
func NormalizeSSN(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Check fails with ErrDuplicateSubmission, carrying the tracking number of the
// blocking application, when the identity has any non-terminal application.
// Inputs are normalized here; callers persist the same normalized values.
func (g *Guard) Check(ctx context.Context, email, ssn string) error {
	existing, err := g.finder.FindByIdentity(ctx, NormalizeEmail(email), NormalizeSSN(ssn))
	if err != nil {
		return err
	}
	for _, a := range existing {
		if a.Status.IsLive() {
			e := ErrDuplicateSubmission.With("application %s is still %s", a.TrackingNumber, a.Status)
			e.Existing = a.TrackingNumber
			return e
		}
	}
	return nil
}
