package loan

import (
	"context"
	"errors"
	"strings"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/disbursement"
	"loan-settlement-engine/internal/domain/loan"
	"loan-settlement-engine/internal/domain/notify"
	"loan-settlement-engine/internal/domain/uow"
	"loan-settlement-engine/pkg/id"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Disburse records the payout of the approved amount and closes the application.
// Only a fee_paid application backed by exactly one succeeded payment qualifies.
func (u *Usecase) Disburse(ctx context.Context, trackingNumber string, in DisburseInput, actorID string) (*DisbursementDTO, error) {
	const ev = loan.EventDisburse
	in.BankName = strings.TrimSpace(in.BankName)
	in.BankAccountNumber = strings.TrimSpace(in.BankAccountNumber)
	in.AccountHolderName = strings.TrimSpace(in.AccountHolderName)
	switch {
	case in.BankName == "":
		return nil, u.fail(ev, apperr.Validation("bank_name", "required", "bank name is required"))
	case in.BankAccountNumber == "":
		return nil, u.fail(ev, apperr.Validation("bank_account_number", "required", "bank account number is required"))
	case in.AccountHolderName == "":
		return nil, u.fail(ev, apperr.Validation("account_holder_name", "required", "account holder name is required"))
	}

	var (
		app  *loan.Application
		from loan.Status
		d    *disbursement.Disbursement
	)
	err := u.uow.WithinApplicationTx(ctx, trackingNumber, func(r uow.Repos, a *loan.Application) error {
		app = a
		if _, err := loan.Next(a.Status, ev); err != nil {
			return err
		}
		n, err := r.Payments.CountSucceededByApplicationID(ctx, a.ID)
		if err != nil {
			return err
		}
		if n != 1 {
			return u.invariant(a, "fee_payment_count", "fee_paid application must have exactly one succeeded payment", zap.Int64("count", n))
		}
		if a.ApprovedAmount == nil {
			return u.invariant(a, "approved_amount_missing", "fee_paid application has no approved amount")
		}
		d = &disbursement.Disbursement{
			DisbursementID:    id.NewID32(),
			ApplicationID:     a.ID,
			Amount:            *a.ApprovedAmount,
			Currency:          a.Currency,
			BankName:          in.BankName,
			BankAccountNumber: in.BankAccountNumber,
			BankRoutingNumber: strings.TrimSpace(in.BankRoutingNumber),
			AccountHolderName: in.AccountHolderName,
			Status:            disbursement.StatusPending,
			InitiatedBy:       actorOr(actorID),
		}
		if err := r.Disbursements.Create(ctx, d); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return disbursement.ErrAlreadyExists
			}
			return err
		}
		now := u.now()
		from, err = u.move(ctx, r, a, ev, func(a *loan.Application) {
			a.DisbursedAt = &now
		})
		return err
	})
	if err != nil {
		return nil, u.fail(ev, err)
	}
	meta := map[string]any{
		"disbursement_id": d.DisbursementID,
		"amount":          d.Amount,
		"currency":        d.Currency,
	}
	u.after(ctx, ev, app, from, actorOr(actorID), meta)
	u.notify(ctx, notify.EventDisbursed, app, meta)
	return toDisbursementDTO(d, app.TrackingNumber), nil
}

// UpdateDisbursementStatus records the bank's progress on a payout. Repeating
// the current status is a no-op.
func (u *Usecase) UpdateDisbursementStatus(ctx context.Context, disbursementID string, in DisbursementUpdateInput, actorID string) (*DisbursementDTO, error) {
	to := disbursement.Status(strings.ToLower(strings.TrimSpace(in.Status)))
	ref := strings.TrimSpace(in.ExternalRef)
	var (
		d       *disbursement.Disbursement
		from    disbursement.Status
		changed bool
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		d, err = r.Disbursements.GetByDisbursementIDForUpdate(ctx, disbursementID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return disbursement.ErrNotFound
		}
		if err != nil {
			return err
		}
		from = d.Status
		if d.Status == to {
			return nil
		}
		if !disbursement.CanMove(d.Status, to) {
			return disbursement.ErrInvalidTransition.With("cannot move disbursement from %s to %s", d.Status, to)
		}
		d.Status = to
		if ref != "" {
			d.ExternalRef = &ref
		}
		if to == disbursement.StatusCompleted {
			now := u.now()
			d.CompletedAt = &now
		}
		changed = true
		return r.Disbursements.Save(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		u.log.Info("disbursement updated",
			zap.String("disbursement_id", d.DisbursementID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		if u.auditor != nil {
			if err := u.auditor.Record(ctx, "disbursement."+string(to), actorOr(actorID),
				"disbursement "+string(from)+" -> "+string(to),
				map[string]any{"disbursement_id": d.DisbursementID, "external_ref": ref}); err != nil {
				u.log.Warn("audit write failed", zap.String("disbursement_id", d.DisbursementID), zap.Error(err))
			}
		}
		if to == disbursement.StatusFailed {
			u.log.Error("disbursement failed at the bank", zap.String("disbursement_id", d.DisbursementID))
		}
	}
	return toDisbursementDTO(d, ""), nil
}
