// Package chain verifies on-chain payments per supported currency.
package chain

import (
	"context"
	"sort"
	"strings"
	"sync"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/payment"
)

// Verifier checks transactions for one currency.
type Verifier interface {
	Currency() string
	Decimals() int32
	RequiredConfirmations() int
	ValidateAddress(address string) error
	Verify(ctx context.Context, txHash string, want payment.Expected) (payment.Verification, error)
}

var ErrUnsupportedCurrency = apperr.Validation("crypto_currency", "unsupported_currency", "crypto currency not supported")

type Registry struct {
	mu        sync.RWMutex
	verifiers map[string]Verifier
}

func NewRegistry(vs ...Verifier) *Registry {
	r := &Registry{verifiers: make(map[string]Verifier)}
	for _, v := range vs {
		r.Register(v)
	}
	return r
}

// Register adds or replaces the verifier for v.Currency().
func (r *Registry) Register(v Verifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers[strings.ToUpper(v.Currency())] = v
}

func (r *Registry) Get(currency string) (Verifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.verifiers[strings.ToUpper(currency)]
	if !ok {
		return nil, ErrUnsupportedCurrency.With("crypto currency %q not supported", currency)
	}
	return v, nil
}

// Currencies lists registered currencies, sorted.
func (r *Registry) Currencies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.verifiers))
	for c := range r.verifiers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Verify(ctx context.Context, currency, txHash string, want payment.Expected) (payment.Verification, error) {
	v, err := r.Get(currency)
	if err != nil {
		return payment.Verification{}, err
	}
	return v.Verify(ctx, txHash, want)
}

func (r *Registry) ValidateAddress(currency, address string) error {
	v, err := r.Get(currency)
	if err != nil {
		return err
	}
	return v.ValidateAddress(address)
}

func (r *Registry) Decimals(currency string) (int32, error) {
	v, err := r.Get(currency)
	if err != nil {
		return 0, err
	}
	return v.Decimals(), nil
}

func (r *Registry) RequiredConfirmations(currency string) (int, error) {
	v, err := r.Get(currency)
	if err != nil {
		return 0, err
	}
	return v.RequiredConfirmations(), nil
}

func pending(conf, required int) payment.Verification {
	return payment.Verification{Status: payment.VerificationPending, Confirmations: conf, Required: required}
}

// settle reports confirmed only at or past the threshold.
func settle(conf, required int) payment.Verification {
	if conf < required {
		return pending(conf, required)
	}
	return payment.Verification{Status: payment.VerificationConfirmed, Confirmations: conf, Required: required}
}

func refuse(status payment.VerificationStatus, required int, detail string) payment.Verification {
	return payment.Verification{Status: status, Required: required, Detail: detail}
}
