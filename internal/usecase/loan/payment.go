package loan

import (
	"context"
	"errors"
	"strings"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/loan"
	"loan-settlement-engine/internal/domain/notify"
	"loan-settlement-engine/internal/domain/payment"
	"loan-settlement-engine/internal/domain/uow"
	paymentuc "loan-settlement-engine/internal/usecase/payment"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reasonProcessorError = "processor_error"

var ErrPaymentInFlight = apperr.Conflict("payment_in_flight", "a transaction was already submitted for this payment")

// InitiatePayment opens a fee payment and moves the application to fee_pending.
// Card charges are attempted right away; crypto charges wait for a tx hash.
func (u *Usecase) InitiatePayment(ctx context.Context, trackingNumber string, in InitiatePaymentInput, actorID string) (*PaymentResult, error) {
	const ev = loan.EventInitiatePayment
	a, err := u.load(ctx, trackingNumber)
	if err != nil {
		return nil, u.fail(ev, err)
	}
	if _, err := loan.Next(a.Status, ev); err != nil {
		return nil, u.fail(ev, err)
	}
	if a.ProcessingFeeAmount == nil || *a.ProcessingFeeAmount < 0 {
		return nil, u.fail(ev, u.invariant(a, "fee_missing", "approved application has no processing fee"))
	}

	// Quotes and wallet lookups go over the network; do them before taking the row lock.
	var p *payment.Payment
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	switch provider {
	case "crypto":
		p, err = u.gateway.OpenCryptoCharge(ctx, paymentuc.CryptoChargeInput{
			ApplicationID:  a.ID,
			Amount:         a.FeeAmount(),
			FiatCurrency:   a.Currency,
			CryptoCurrency: in.CryptoCurrency,
		})
		if err != nil {
			return nil, u.fail(ev, err)
		}
	case "card":
		if strings.TrimSpace(in.PaymentMethod) == "" {
			return nil, u.fail(ev, apperr.Validation("payment_method", "required", "payment method is required"))
		}
		p = u.gateway.NewCardPayment(a.ID, a.FeeAmount(), a.Currency)
	default:
		return nil, u.fail(ev, apperr.Validation("provider", "unsupported_provider", "provider must be card or crypto"))
	}

	var from loan.Status
	err = u.uow.WithinApplicationTx(ctx, trackingNumber, func(r uow.Repos, locked *loan.Application) error {
		a = locked
		n, err := r.Payments.CountSucceededByApplicationID(ctx, locked.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return payment.ErrAlreadySucceeded
		}
		if locked.FeeAmount() != p.Amount {
			return u.invariant(locked, "fee_changed", "processing fee changed while opening the payment")
		}
		if from, err = u.move(ctx, r, locked, ev, nil); err != nil {
			return err
		}
		return r.Payments.Create(ctx, p)
	})
	if err != nil {
		return nil, u.fail(ev, err)
	}
	u.after(ctx, ev, a, from, actorOr(actorID), map[string]any{
		"payment_id": p.PaymentID,
		"provider":   string(p.Provider),
	})

	if p.Provider != payment.ProviderCard {
		return &PaymentResult{ApplicationStatus: string(a.Status), Payment: toPaymentDTO(p)}, nil
	}
	out, err := u.gateway.ChargeCard(ctx, p, in.PaymentMethod)
	if out, err = u.cardOutcome(p, out, err); err != nil {
		return nil, u.fail(ev, err)
	}
	return u.settle(ctx, trackingNumber, p, payment.StatusPending, out, actorID)
}

// VerifyPayment re-checks an open payment against its provider and settles
// the application accordingly. Verifying a succeeded payment changes nothing.
func (u *Usecase) VerifyPayment(ctx context.Context, trackingNumber, paymentID string, in VerifyPaymentInput, actorID string) (*PaymentResult, error) {
	const ev = loan.EventConfirmPayment
	a, p, err := u.loadPayment(ctx, trackingNumber, paymentID)
	if err != nil {
		return nil, u.fail(ev, err)
	}
	if p.Status == payment.StatusSucceeded {
		return &PaymentResult{
			ApplicationStatus: string(a.Status),
			Payment:           toPaymentDTO(p),
			Outcome:           &paymentuc.Outcome{Status: p.Status, Confirmations: p.Confirmations, Required: p.RequiredConfirmations},
		}, nil
	}
	if !p.IsOpen() {
		return nil, u.fail(ev, payment.ErrClosed.With("payment is %s", p.Status))
	}

	from := p.Status
	var out paymentuc.Outcome
	switch p.Provider {
	case payment.ProviderCrypto:
		hash := payment.NormalizeTxHash(in.TxHash)
		if hash == "" && p.TxHash != nil {
			hash = payment.NormalizeTxHash(*p.TxHash)
		}
		if hash == "" {
			return nil, u.fail(ev, apperr.Validation("tx_hash", "required", "transaction hash is required"))
		}
		if p.TxHash == nil {
			if p.Expired(u.now()) {
				return nil, u.fail(ev, payment.ErrChargeExpired)
			}
			taken, err := u.payments.ExistsTxHash(ctx, hash, p.PaymentID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, u.fail(ev, payment.ErrTxHashReused)
			}
		}
		out, err = u.gateway.VerifyCrypto(ctx, p, hash)
		if err == nil && out.Reason == string(payment.VerificationNotFound) && p.UnseenTooLong(u.now(), u.opts.UnseenTxGrace) {
			p.MarkFailed(reasonTxNotFound)
			out = paymentuc.Outcome{Status: p.Status, Reason: reasonTxNotFound, Required: p.RequiredConfirmations}
		}
	case payment.ProviderCard:
		out, err = u.gateway.VerifyCard(ctx, p, in.PaymentMethod)
		out, err = u.cardOutcome(p, out, err)
	default:
		err = u.invariant(a, "unknown_provider", "payment has an unknown provider")
	}
	if err != nil {
		return nil, u.fail(ev, err)
	}
	return u.settle(ctx, trackingNumber, p, from, out, actorID)
}

// ConfirmPayment moves fee_pending to fee_paid once exactly one payment for
// the full fee has succeeded.
func (u *Usecase) ConfirmPayment(ctx context.Context, trackingNumber, actorID string) (*ApplicationDTO, error) {
	const ev = loan.EventConfirmPayment
	var (
		app  *loan.Application
		from loan.Status
	)
	err := u.uow.WithinApplicationTx(ctx, trackingNumber, func(r uow.Repos, a *loan.Application) error {
		app, from = a, a.Status
		if _, err := loan.Next(a.Status, ev); err != nil {
			return err
		}
		return u.confirmLocked(ctx, r, a)
	})
	if err != nil {
		return nil, u.fail(ev, err)
	}
	u.after(ctx, ev, app, from, actorOr(actorID), nil)
	return toApplicationDTO(app), nil
}

// FailPayment abandons an open payment and returns the application to approved
// so a new attempt can be made.
func (u *Usecase) FailPayment(ctx context.Context, trackingNumber, paymentID, reason, actorID string) (*PaymentResult, error) {
	const ev = loan.EventPaymentFailed
	_, p, err := u.loadPayment(ctx, trackingNumber, paymentID)
	if err != nil {
		return nil, u.fail(ev, err)
	}
	if !p.IsOpen() {
		return nil, u.fail(ev, payment.ErrClosed.With("payment is %s", p.Status))
	}
	// a hash the chain has never seen cannot still settle, so it may be abandoned
	if p.TxHash != nil && !p.Unseen() {
		return nil, u.fail(ev, ErrPaymentInFlight)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "abandoned"
	}
	from := p.Status
	p.MarkCancelled(reason)
	return u.settle(ctx, trackingNumber, p, from, paymentuc.Outcome{Status: p.Status, Reason: reason}, actorID)
}

// settle persists p after a provider call moved it away from status from, then
// drives the application to match: fee_paid on success, approved on failure.
func (u *Usecase) settle(ctx context.Context, trackingNumber string, p *payment.Payment, from payment.Status, out paymentuc.Outcome, actorID string) (*PaymentResult, error) {
	var (
		app          *loan.Application
		appFrom      loan.Status
		ev           loan.Event
		invariantErr error
	)
	err := u.uow.WithinApplicationTx(ctx, trackingNumber, func(r uow.Repos, a *loan.Application) error {
		app, appFrom = a, a.Status
		if p.TxHash != nil {
			taken, err := r.Payments.ExistsTxHash(ctx, *p.TxHash, p.PaymentID)
			if err != nil {
				return err
			}
			if taken {
				return payment.ErrTxHashReused
			}
		}
		if err := r.Payments.Update(ctx, p, from); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				if p.Status == payment.StatusSucceeded {
					return payment.ErrAlreadySucceeded
				}
				return payment.ErrTxHashReused
			}
			return err
		}

		switch {
		case p.Status == payment.StatusSucceeded && a.Status == loan.StatusFeePending:
			ev = loan.EventConfirmPayment
			err := u.confirmLocked(ctx, r, a)
			if apperr.KindOf(err) == apperr.KindInvariant {
				// keep the recorded success; the application waits for an operator
				invariantErr, ev = err, ""
				return nil
			}
			return err
		case p.Status == payment.StatusSucceeded:
			u.metrics.InvariantViolation()
			u.log.Error("fee collected for an application no longer awaiting it",
				zap.String("tracking_number", a.TrackingNumber),
				zap.String("status", string(a.Status)),
				zap.String("payment_id", p.PaymentID))
		case (p.Status == payment.StatusFailed || p.Status == payment.StatusCancelled) && a.Status == loan.StatusFeePending:
			ev = loan.EventPaymentFailed
			_, err := u.move(ctx, r, a, ev, nil)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, u.fail(loan.EventConfirmPayment, err)
	}

	if ev != "" {
		u.after(ctx, ev, app, appFrom, actorOr(actorID), map[string]any{
			"payment_id":     p.PaymentID,
			"payment_status": string(p.Status),
		})
	}
	if p.Status != from {
		switch p.Status {
		case payment.StatusSucceeded:
			u.notify(ctx, notify.EventPaymentSucceeded, app, map[string]any{
				"payment_id": p.PaymentID,
				"amount":     p.Amount,
				"currency":   p.Currency,
			})
		case payment.StatusFailed, payment.StatusCancelled:
			u.notify(ctx, notify.EventPaymentFailed, app, map[string]any{
				"payment_id": p.PaymentID,
				"reason":     out.Reason,
			})
		}
	}
	if invariantErr != nil {
		return nil, invariantErr
	}
	return &PaymentResult{ApplicationStatus: string(app.Status), Payment: toPaymentDTO(p), Outcome: &out}, nil
}

// confirmLocked moves a locked fee_pending application to fee_paid.
func (u *Usecase) confirmLocked(ctx context.Context, r uow.Repos, a *loan.Application) error {
	n, err := r.Payments.CountSucceededByApplicationID(ctx, a.ID)
	if err != nil {
		return err
	}
	switch {
	case n == 0:
		return loan.ErrFeeNotPaid
	case n > 1:
		return u.invariant(a, "multiple_fee_payments", "more than one succeeded payment", zap.Int64("count", n))
	}
	p, err := r.Payments.GetSucceededByApplicationID(ctx, a.ID)
	if err != nil {
		return err
	}
	if a.ProcessingFeeAmount == nil || p.Amount != *a.ProcessingFeeAmount || !strings.EqualFold(p.Currency, a.Currency) {
		return u.invariant(a, "fee_amount_mismatch", "succeeded payment does not match the processing fee",
			zap.String("payment_id", p.PaymentID),
			zap.Int64("paid", p.Amount),
			zap.Int64("fee", a.FeeAmount()))
	}
	now := u.now()
	_, err = u.move(ctx, r, a, loan.EventConfirmPayment, func(a *loan.Application) {
		a.FeePaidAt = &now
	})
	return err
}

// cardOutcome turns a permanent processor error into a failed payment so the
// applicant can retry with another attempt. Invariant errors pass through.
func (u *Usecase) cardOutcome(p *payment.Payment, out paymentuc.Outcome, err error) (paymentuc.Outcome, error) {
	if err == nil || apperr.KindOf(err) != apperr.KindExternal {
		return out, err
	}
	u.log.Warn("card processor refused the charge", zap.String("payment_id", p.PaymentID), zap.Error(err))
	p.MarkFailed(reasonProcessorError)
	return paymentuc.Outcome{Status: p.Status, Reason: reasonProcessorError}, nil
}

func (u *Usecase) loadPayment(ctx context.Context, trackingNumber, paymentID string) (*loan.Application, *payment.Payment, error) {
	a, err := u.load(ctx, trackingNumber)
	if err != nil {
		return nil, nil, err
	}
	p, err := u.payments.GetByPaymentID(ctx, paymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && p.ApplicationID != a.ID) {
		return nil, nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return a, p, nil
}
