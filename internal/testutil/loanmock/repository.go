package loanmock

import (
	"context"
	"time"

	domain "loan-settlement-engine/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset lookups return context.Canceled; unset writes succeed.
type Repo struct {
	CreateFn                       func(ctx context.Context, a *domain.Application) error
	GetByTrackingNumberFn          func(ctx context.Context, trackingNumber string) (*domain.Application, error)
	GetByTrackingNumberForUpdateFn func(ctx context.Context, trackingNumber string) (*domain.Application, error)
	GetByIDFn                      func(ctx context.Context, id uint64) (*domain.Application, error)
	TrackingNumberExistsFn         func(ctx context.Context, trackingNumber string) (bool, error)
	FindByIdentityFn               func(ctx context.Context, email, ssn string) ([]domain.Application, error)
	TransitionFn                   func(ctx context.Context, a *domain.Application, from domain.Status) error
	ListAwaitingFeeFn              func(ctx context.Context, approvedBefore time.Time, limit int) ([]domain.Application, error)
	ClaimFeeReminderFn             func(ctx context.Context, id uint64, at time.Time) (bool, error)
}

func (m *Repo) Create(ctx context.Context, a *domain.Application) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Application, error) {
	if m.GetByTrackingNumberFn != nil {
		return m.GetByTrackingNumberFn(ctx, trackingNumber)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByTrackingNumberForUpdate(ctx context.Context, trackingNumber string) (*domain.Application, error) {
	if m.GetByTrackingNumberForUpdateFn != nil {
		return m.GetByTrackingNumberForUpdateFn(ctx, trackingNumber)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Application, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) TrackingNumberExists(ctx context.Context, trackingNumber string) (bool, error) {
	if m.TrackingNumberExistsFn != nil {
		return m.TrackingNumberExistsFn(ctx, trackingNumber)
	}
	return false, nil
}

func (m *Repo) FindByIdentity(ctx context.Context, email, ssn string) ([]domain.Application, error) {
	if m.FindByIdentityFn != nil {
		return m.FindByIdentityFn(ctx, email, ssn)
	}
	return nil, nil
}

func (m *Repo) Transition(ctx context.Context, a *domain.Application, from domain.Status) error {
	if m.TransitionFn != nil {
		return m.TransitionFn(ctx, a, from)
	}
	return nil
}

func (m *Repo) ListAwaitingFee(ctx context.Context, approvedBefore time.Time, limit int) ([]domain.Application, error) {
	if m.ListAwaitingFeeFn != nil {
		return m.ListAwaitingFeeFn(ctx, approvedBefore, limit)
	}
	return nil, nil
}

func (m *Repo) ClaimFeeReminder(ctx context.Context, id uint64, at time.Time) (bool, error) {
	if m.ClaimFeeReminderFn != nil {
		return m.ClaimFeeReminderFn(ctx, id, at)
	}
	return true, nil
}
