package loan

import (
	"context"

	"loan-settlement-engine/internal/domain/loan"
	"loan-settlement-engine/internal/domain/notify"
	"loan-settlement-engine/internal/domain/payment"
	"loan-settlement-engine/internal/domain/uow"

	"go.uber.org/zap"
)

const reasonChargeExpired = "charge_expired"

// ExpireCharges cancels crypto charges that ran out with no transaction
// submitted, and re-checks charges whose transaction the chain has not seen
// UnseenTxGrace after expiry, failing those still missing. Either way the
// application returns to approved. It returns how many payments it closed.
func (u *Usecase) ExpireCharges(ctx context.Context) (int, error) {
	cancelled, err := u.cancelExpired(ctx)
	if err != nil {
		return cancelled, err
	}
	failed, err := u.failUnseen(ctx)
	return cancelled + failed, err
}

func (u *Usecase) cancelExpired(ctx context.Context) (int, error) {
	now := u.now()
	expired, err := u.payments.ListExpiredOpen(ctx, now, u.opts.SweepBatch)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for i := range expired {
		if ctx.Err() != nil {
			return cancelled, ctx.Err()
		}
		p := expired[i]
		a, err := u.loans.GetByID(ctx, p.ApplicationID)
		if err != nil {
			u.log.Warn("expire charge: application lookup failed", zap.String("payment_id", p.PaymentID), zap.Error(err))
			continue
		}

		var (
			done  bool
			moved bool
			from  loan.Status
		)
		err = u.uow.WithinApplicationTx(ctx, a.TrackingNumber, func(r uow.Repos, locked *loan.Application) error {
			a = locked
			cur, err := r.Payments.GetByPaymentID(ctx, p.PaymentID)
			if err != nil {
				return err
			}
			if cur.Status != payment.StatusPending || !cur.Expired(now) {
				return nil
			}
			cur.MarkCancelled(reasonChargeExpired)
			if err := r.Payments.Update(ctx, cur, payment.StatusPending); err != nil {
				return err
			}
			done = true
			if locked.Status != loan.StatusFeePending {
				return nil
			}
			from, err = u.move(ctx, r, locked, loan.EventPaymentFailed, nil)
			moved = err == nil
			return err
		})
		if err != nil {
			u.log.Warn("expire charge failed", zap.String("payment_id", p.PaymentID), zap.Error(err))
			continue
		}
		if !done {
			continue
		}
		cancelled++
		if moved {
			u.after(ctx, loan.EventPaymentFailed, a, from, systemActor, map[string]any{
				"payment_id": p.PaymentID,
				"reason":     reasonChargeExpired,
			})
			u.notify(ctx, notify.EventPaymentFailed, a, map[string]any{
				"payment_id": p.PaymentID,
				"reason":     reasonChargeExpired,
			})
		}
	}
	return cancelled, nil
}

// SendFeeReminders nudges applicants approved for longer than FeeReminderAfter
// who have not started paying. Each application is reminded at most once.
func (u *Usecase) SendFeeReminders(ctx context.Context) (int, error) {
	now := u.now()
	due, err := u.loans.ListAwaitingFee(ctx, now.Add(-u.opts.FeeReminderAfter), u.opts.SweepBatch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		a := &due[i]
		claimed, err := u.loans.ClaimFeeReminder(ctx, a.ID, now)
		if err != nil {
			u.log.Warn("fee reminder claim failed", zap.String("tracking_number", a.TrackingNumber), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		u.notify(ctx, notify.EventFeePaymentDue, a, map[string]any{
			"processing_fee_amount": a.FeeAmount(),
			"currency":              a.Currency,
		})
		sent++
	}
	return sent, nil
}

// failUnseen re-verifies each stale unseen transaction once more; VerifyPayment
// fails the payment if the chain still does not know it.
func (u *Usecase) failUnseen(ctx context.Context) (int, error) {
	stale, err := u.payments.ListUnseenOpen(ctx, u.now().Add(-u.opts.UnseenTxGrace), u.opts.SweepBatch)
	if err != nil {
		return 0, err
	}
	failed := 0
	for i := range stale {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		p := stale[i]
		a, err := u.loans.GetByID(ctx, p.ApplicationID)
		if err != nil {
			u.log.Warn("unseen tx: application lookup failed", zap.String("payment_id", p.PaymentID), zap.Error(err))
			continue
		}
		res, err := u.VerifyPayment(ctx, a.TrackingNumber, p.PaymentID, VerifyPaymentInput{}, systemActor)
		if err != nil {
			u.log.Warn("unseen tx re-check failed", zap.String("payment_id", p.PaymentID), zap.Error(err))
			continue
		}
		if res.Payment.Status == string(payment.StatusFailed) {
			failed++
		}
	}
	return failed, nil
}
