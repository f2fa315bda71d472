package paymentmock

import (
	"context"
	"time"

	domain "loan-settlement-engine/internal/domain/payment"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset lookups return context.Canceled; unset writes succeed.
type Repo struct {
	CreateFn                        func(ctx context.Context, p *domain.Payment) error
	GetByPaymentIDFn                func(ctx context.Context, paymentID string) (*domain.Payment, error)
	ListByApplicationIDFn           func(ctx context.Context, applicationID uint64) ([]domain.Payment, error)
	GetSucceededByApplicationIDFn   func(ctx context.Context, applicationID uint64) (*domain.Payment, error)
	CountSucceededByApplicationIDFn func(ctx context.Context, applicationID uint64) (int64, error)
	ExistsTxHashFn                  func(ctx context.Context, txHash, exceptPaymentID string) (bool, error)
	UpdateFn                        func(ctx context.Context, p *domain.Payment, from domain.Status) error
	ListExpiredOpenFn               func(ctx context.Context, now time.Time, limit int) ([]domain.Payment, error)
	ListUnseenOpenFn                func(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error)
}

func (m *Repo) Create(ctx context.Context, p *domain.Payment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}

func (m *Repo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if m.GetByPaymentIDFn != nil {
		return m.GetByPaymentIDFn(ctx, paymentID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByApplicationID(ctx context.Context, applicationID uint64) ([]domain.Payment, error) {
	if m.ListByApplicationIDFn != nil {
		return m.ListByApplicationIDFn(ctx, applicationID)
	}
	return nil, nil
}

func (m *Repo) GetSucceededByApplicationID(ctx context.Context, applicationID uint64) (*domain.Payment, error) {
	if m.GetSucceededByApplicationIDFn != nil {
		return m.GetSucceededByApplicationIDFn(ctx, applicationID)
	}
	return nil, context.Canceled
}

func (m *Repo) CountSucceededByApplicationID(ctx context.Context, applicationID uint64) (int64, error) {
	if m.CountSucceededByApplicationIDFn != nil {
		return m.CountSucceededByApplicationIDFn(ctx, applicationID)
	}
	return 0, nil
}

func (m *Repo) ExistsTxHash(ctx context.Context, txHash, exceptPaymentID string) (bool, error) {
	if m.ExistsTxHashFn != nil {
		return m.ExistsTxHashFn(ctx, txHash, exceptPaymentID)
	}
	return false, nil
}

func (m *Repo) Update(ctx context.Context, p *domain.Payment, from domain.Status) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, p, from)
	}
	return nil
}

func (m *Repo) ListExpiredOpen(ctx context.Context, now time.Time, limit int) ([]domain.Payment, error) {
	if m.ListExpiredOpenFn != nil {
		return m.ListExpiredOpenFn(ctx, now, limit)
	}
	return nil, nil
}

func (m *Repo) ListUnseenOpen(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error) {
	if m.ListUnseenOpenFn != nil {
		return m.ListUnseenOpenFn(ctx, cutoff, limit)
	}
	return nil, nil
}
