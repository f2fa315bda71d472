package uowmock

import (
	"context"
	"errors"
	"sync"

	"loan-settlement-engine/internal/domain/loan"
	"loan-settlement-engine/internal/domain/uow"

	"gorm.io/gorm"
)

var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW stands in for the gorm unit of work. A UoW built with Passthrough runs
// callbacks straight against its repos and applications; the Fn fields take
// precedence when set. It records which applications were locked.
type UoW struct {
	WithinTxFn            func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinApplicationTxFn func(ctx context.Context, trackingNumber string, fn func(r uow.Repos, a *loan.Application) error) error

	repos       uow.Repos
	apps        map[string]*loan.Application
	passthrough bool

	mu     sync.Mutex
	txs    int
	locked []string
}

func New() *UoW { return &UoW{} }

// Passthrough serves WithinTx with repos and WithinApplicationTx with the
// matching application. Unknown tracking numbers yield gorm.ErrRecordNotFound
// like the row lock would.
func Passthrough(repos uow.Repos, apps ...*loan.Application) *UoW {
	m := &UoW{repos: repos, apps: make(map[string]*loan.Application, len(apps)), passthrough: true}
	for _, a := range apps {
		m.apps[a.TrackingNumber] = a
	}
	return m
}

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	m.mu.Lock()
	m.txs++
	m.mu.Unlock()
	switch {
	case m.WithinTxFn != nil:
		return m.WithinTxFn(ctx, fn)
	case m.passthrough:
		return fn(m.repos)
	}
	return errUnimplemented
}

func (m *UoW) WithinApplicationTx(ctx context.Context, trackingNumber string, fn func(r uow.Repos, a *loan.Application) error) error {
	m.mu.Lock()
	m.txs++
	m.locked = append(m.locked, trackingNumber)
	m.mu.Unlock()
	switch {
	case m.WithinApplicationTxFn != nil:
		return m.WithinApplicationTxFn(ctx, trackingNumber, fn)
	case m.passthrough:
		a, ok := m.apps[trackingNumber]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		return fn(m.repos, a)
	}
	return errUnimplemented
}

// Transactions counts calls to either method.
func (m *UoW) Transactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txs
}

// Locked lists the tracking numbers passed to WithinApplicationTx, in order.
func (m *UoW) Locked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.locked...)
}
