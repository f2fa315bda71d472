package loan

import (
	"context"
	"strings"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/loan"
	"loan-settlement-engine/internal/domain/notify"
	"loan-settlement-engine/internal/domain/uow"
	feeuc "loan-settlement-engine/internal/usecase/fee"

	"go.uber.org/zap"
)

func (u *Usecase) StartReview(ctx context.Context, trackingNumber, actorID string) (*ApplicationDTO, error) {
	var (
		app  *loan.Application
		from loan.Status
	)
	err := u.uow.WithinApplicationTx(ctx, trackingNumber, func(r uow.Repos, a *loan.Application) error {
		app = a
		var err error
		from, err = u.move(ctx, r, a, loan.EventStartReview, func(a *loan.Application) {
			a.ReviewedBy = &actorID
		})
		return err
	})
	if err != nil {
		return nil, u.fail(loan.EventStartReview, err)
	}
	u.after(ctx, loan.EventStartReview, app, from, actorOr(actorID), nil)
	return toApplicationDTO(app), nil
}

// Approve fixes the approved amount and computes the processing fee from the
// fee configuration active at this moment. Both are written exactly once.
func (u *Usecase) Approve(ctx context.Context, trackingNumber string, in ApproveInput, actorID string) (*ApplicationDTO, error) {
	if in.ApprovedAmount <= 0 {
		return nil, u.fail(loan.EventApprove, apperr.Validation("approved_amount", "invalid_amount", "approved amount must be positive"))
	}
	var (
		app  *loan.Application
		from loan.Status
	)
	err := u.uow.WithinApplicationTx(ctx, trackingNumber, func(r uow.Repos, a *loan.Application) error {
		app = a
		if _, err := loan.Next(a.Status, loan.EventApprove); err != nil {
			return err
		}
		if a.ApprovedAmount != nil || a.ProcessingFeeAmount != nil {
			return u.invariant(a, "approved_terms_already_set", "approved amount and fee are already set")
		}
		cfg, err := feeuc.ActiveFrom(ctx, r.Fees)
		if err != nil {
			return err
		}
		fee, err := feeuc.Compute(in.ApprovedAmount, cfg)
		if err != nil {
			return err
		}
		approved := in.ApprovedAmount
		now := u.now()
		from, err = u.move(ctx, r, a, loan.EventApprove, func(a *loan.Application) {
			a.ApprovedAmount = &approved
			a.ProcessingFeeAmount = &fee
			a.ApprovedAt = &now
			a.ReviewedBy = &actorID
		})
		return err
	})
	if err != nil {
		return nil, u.fail(loan.EventApprove, err)
	}
	terms := map[string]any{
		"approved_amount":       *app.ApprovedAmount,
		"processing_fee_amount": *app.ProcessingFeeAmount,
		"currency":              app.Currency,
	}
	u.after(ctx, loan.EventApprove, app, from, actorOr(actorID), terms)
	u.notify(ctx, notify.EventApproved, app, terms)
	return toApplicationDTO(app), nil
}

// Reject closes the application. Open payments are cancelled with it; a fee
// already collected stays recorded and is left for an out-of-band refund.
func (u *Usecase) Reject(ctx context.Context, trackingNumber string, in RejectInput, actorID string) (*ApplicationDTO, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, u.fail(loan.EventReject, apperr.Validation("reason", "required", "rejection reason is required"))
	}
	var (
		app  *loan.Application
		from loan.Status
	)
	err := u.uow.WithinApplicationTx(ctx, trackingNumber, func(r uow.Repos, a *loan.Application) error {
		app = a
		if _, err := loan.Next(a.Status, loan.EventReject); err != nil {
			return err
		}
		if err := closeOpenPayments(ctx, r, a, "application_rejected"); err != nil {
			return err
		}
		var err error
		from, err = u.move(ctx, r, a, loan.EventReject, func(a *loan.Application) {
			a.RejectionReason = &reason
			a.ReviewedBy = &actorID
		})
		return err
	})
	if err != nil {
		return nil, u.fail(loan.EventReject, err)
	}
	if from == loan.StatusFeePaid {
		u.log.Warn("rejected after fee collection; refund required", zap.String("tracking_number", app.TrackingNumber))
	}
	u.after(ctx, loan.EventReject, app, from, actorOr(actorID), map[string]any{"reason": reason})
	u.notify(ctx, notify.EventRejected, app, map[string]any{"reason": reason})
	return toApplicationDTO(app), nil
}

// Cancel is the applicant withdrawing before any fee is in flight.
func (u *Usecase) Cancel(ctx context.Context, trackingNumber, actorID string) (*ApplicationDTO, error) {
	var (
		app  *loan.Application
		from loan.Status
	)
	err := u.uow.WithinApplicationTx(ctx, trackingNumber, func(r uow.Repos, a *loan.Application) error {
		app = a
		var err error
		from, err = u.move(ctx, r, a, loan.EventCancel, nil)
		return err
	})
	if err != nil {
		return nil, u.fail(loan.EventCancel, err)
	}
	u.after(ctx, loan.EventCancel, app, from, actorOr(actorID), nil)
	u.notify(ctx, notify.EventCancelled, app, nil)
	return toApplicationDTO(app), nil
}

func closeOpenPayments(ctx context.Context, r uow.Repos, a *loan.Application, reason string) error {
	ps, err := r.Payments.ListByApplicationID(ctx, a.ID)
	if err != nil {
		return err
	}
	for i := range ps {
		p := &ps[i]
		if !p.IsOpen() {
			continue
		}
		from := p.Status
		p.MarkCancelled(reason)
		if err := r.Payments.Update(ctx, p, from); err != nil {
			return err
		}
	}
	return nil
}
