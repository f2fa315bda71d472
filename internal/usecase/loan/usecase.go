package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/disbursement"
	"loan-settlement-engine/internal/domain/loan"
	"loan-settlement-engine/internal/domain/notify"
	"loan-settlement-engine/internal/domain/payment"
	"loan-settlement-engine/internal/domain/uow"
	"loan-settlement-engine/internal/infrastructure/metrics"
	"loan-settlement-engine/internal/usecase/duplicate"
	paymentuc "loan-settlement-engine/internal/usecase/payment"
	"loan-settlement-engine/pkg/id"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxTrackingAttempts = 5
	systemActor         = "system"
	reasonTxNotFound    = "tx_not_found"
)

type Options struct {
	TrackingPrefix   string
	FeeReminderAfter time.Duration
	SweepBatch       int
	// UnseenTxGrace is how long past charge expiry a submitted transaction may
	// stay unknown to the chain before its payment is failed.
	UnseenTxGrace time.Duration
}

func DefaultOptions() Options {
	return Options{TrackingPrefix: "LN", FeeReminderAfter: 72 * time.Hour, SweepBatch: 100, UnseenTxGrace: time.Hour}
}

// Deps are the collaborators of the lifecycle usecase. Notifier and Auditor may be nil.
type Deps struct {
	Loans         loan.Repository
	Payments      payment.Repository
	Disbursements disbursement.Repository
	UOW           uow.UnitOfWork
	Guard         *duplicate.Guard
	Gateway       *paymentuc.Gateway
	Notifier      notify.Notifier
	Auditor       notify.Auditor
	Metrics       *metrics.Recorder
	Log           *zap.Logger
}

// Usecase owns every application status change.
type Usecase struct {
	loans         loan.Repository
	payments      payment.Repository
	disbursements disbursement.Repository
	uow           uow.UnitOfWork
	guard         *duplicate.Guard
	gateway       *paymentuc.Gateway
	notifier      notify.Notifier
	auditor       notify.Auditor
	metrics       *metrics.Recorder
	log           *zap.Logger
	opts          Options
	now           func() time.Time
}

func NewUsecase(d Deps, opts Options) *Usecase {
	def := DefaultOptions()
	if opts.TrackingPrefix == "" {
		opts.TrackingPrefix = def.TrackingPrefix
	}
	if opts.FeeReminderAfter <= 0 {
		opts.FeeReminderAfter = def.FeeReminderAfter
	}
	if opts.SweepBatch <= 0 {
		opts.SweepBatch = def.SweepBatch
	}
	if opts.UnseenTxGrace <= 0 {
		opts.UnseenTxGrace = def.UnseenTxGrace
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		loans:         d.Loans,
		payments:      d.Payments,
		disbursements: d.Disbursements,
		uow:           d.UOW,
		guard:         d.Guard,
		gateway:       d.Gateway,
		notifier:      d.Notifier,
		auditor:       d.Auditor,
		metrics:       d.Metrics,
		log:           log.Named("loan"),
		opts:          opts,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Submit creates a pending application after the duplicate check.
func (u *Usecase) Submit(ctx context.Context, in SubmitInput) (*ApplicationDTO, error) {
	email := duplicate.NormalizeEmail(in.Email)
	ssn := duplicate.NormalizeSSN(in.SSN)
	name := strings.TrimSpace(in.ApplicantName)
	switch {
	case name == "":
		return nil, u.fail(loan.EventSubmit, apperr.Validation("applicant_name", "required", "applicant name is required"))
	case !strings.Contains(email, "@"):
		return nil, u.fail(loan.EventSubmit, apperr.Validation("email", "invalid_email", "email is not valid"))
	case len(ssn) != 9:
		return nil, u.fail(loan.EventSubmit, apperr.Validation("ssn", "invalid_ssn", "ssn must have 9 digits"))
	case in.RequestedAmount <= 0:
		return nil, u.fail(loan.EventSubmit, apperr.Validation("requested_amount", "invalid_amount", "requested amount must be positive"))
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}

	if err := u.guard.Check(ctx, email, ssn); err != nil {
		return nil, u.fail(loan.EventSubmit, err)
	}

	now := u.now()
	a := &loan.Application{
		UserID:          strings.TrimSpace(in.UserID),
		ApplicantName:   name,
		Email:           email,
		SSN:             ssn,
		Phone:           strings.TrimSpace(in.Phone),
		Purpose:         strings.TrimSpace(in.Purpose),
		DocumentID:      in.DocumentID,
		RequestedAmount: in.RequestedAmount,
		Currency:        currency,
		Status:          loan.StatusPending,
		StatusUpdatedAt: now,
	}
	a.HoldIdentity()

	for attempt := 1; ; attempt++ {
		tn := id.NewTrackingNumber(u.opts.TrackingPrefix, now)
		exists, err := u.loans.TrackingNumberExists(ctx, tn)
		if err != nil {
			return nil, err
		}
		if !exists {
			a.TrackingNumber = tn
			err = u.loans.Create(ctx, a)
			if err == nil {
				break
			}
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, err
			}
			// lost a race: either on the tracking number or on the identity
			taken, terr := u.loans.TrackingNumberExists(ctx, tn)
			if terr != nil {
				return nil, terr
			}
			if !taken {
				if gerr := u.guard.Check(ctx, email, ssn); gerr != nil {
					return nil, u.fail(loan.EventSubmit, gerr)
				}
				return nil, u.fail(loan.EventSubmit, duplicate.ErrDuplicateSubmission)
			}
		}
		if attempt >= maxTrackingAttempts {
			return nil, fmt.Errorf("tracking number: %d collisions", attempt)
		}
	}

	u.after(ctx, loan.EventSubmit, a, "", actorOr(a.UserID), nil)
	u.notify(ctx, notify.EventApplicationCreated, a, map[string]any{
		"requested_amount": a.RequestedAmount,
		"currency":         a.Currency,
	})
	return toApplicationDTO(a), nil
}

func (u *Usecase) Get(ctx context.Context, trackingNumber string) (*ApplicationDTO, error) {
	a, err := u.load(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	return toApplicationDTO(a), nil
}

func (u *Usecase) ListPayments(ctx context.Context, trackingNumber string) ([]PaymentDTO, error) {
	a, err := u.load(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	ps, err := u.payments.ListByApplicationID(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentDTO, 0, len(ps))
	for i := range ps {
		out = append(out, toPaymentDTO(&ps[i]))
	}
	return out, nil
}

func (u *Usecase) load(ctx context.Context, trackingNumber string) (*loan.Application, error) {
	a, err := u.loans.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return a, nil
}

// move applies ev to the locked application a and persists it with a status CAS.
func (u *Usecase) move(ctx context.Context, r uow.Repos, a *loan.Application, ev loan.Event, mutate func(*loan.Application)) (loan.Status, error) {
	from := a.Status
	to, err := loan.Next(from, ev)
	if err != nil {
		return from, err
	}
	if mutate != nil {
		mutate(a)
	}
	a.MoveTo(to, u.now())
	if err := r.Loans.Transition(ctx, a, from); err != nil {
		return from, err
	}
	return from, nil
}

// after records a committed change: metric, log line and audit entry.
func (u *Usecase) after(ctx context.Context, ev loan.Event, a *loan.Application, from loan.Status, actorID string, meta map[string]any) {
	u.metrics.Transition(string(ev), string(from), string(a.Status))
	u.log.Info("application transitioned",
		zap.String("tracking_number", a.TrackingNumber),
		zap.String("event", string(ev)),
		zap.String("from", string(from)),
		zap.String("to", string(a.Status)),
		zap.String("actor", actorID))
	if u.auditor == nil {
		return
	}
	md := map[string]any{
		"tracking_number": a.TrackingNumber,
		"from":            string(from),
		"to":              string(a.Status),
	}
	for k, v := range meta {
		md[k] = v
	}
	desc := fmt.Sprintf("%s: %s -> %s", ev, from, a.Status)
	if from == "" {
		desc = fmt.Sprintf("%s: %s", ev, a.Status)
	}
	if err := u.auditor.Record(ctx, "application."+string(ev), actorID, desc, md); err != nil {
		u.log.Warn("audit write failed", zap.String("tracking_number", a.TrackingNumber), zap.Error(err))
	}
}

func (u *Usecase) notify(ctx context.Context, ev notify.Event, a *loan.Application, extra map[string]any) {
	if u.notifier == nil {
		return
	}
	payload := map[string]any{
		"tracking_number": a.TrackingNumber,
		"applicant_name":  a.ApplicantName,
		"status":          string(a.Status),
	}
	for k, v := range extra {
		payload[k] = v
	}
	if err := u.notifier.Send(ctx, ev, a.Email, payload); err != nil {
		u.log.Warn("notification failed",
			zap.String("tracking_number", a.TrackingNumber),
			zap.String("event", string(ev)),
			zap.Error(err))
	}
}

// fail counts a refused or failed operation and normalizes repository not-found errors.
func (u *Usecase) fail(ev loan.Event, err error) error {
	err = mapNotFound(err)
	u.metrics.TransitionError(string(ev), string(apperr.KindOf(err)))
	return err
}

func (u *Usecase) invariant(a *loan.Application, reason, msg string, fields ...zap.Field) error {
	u.metrics.InvariantViolation()
	u.log.Error("invariant violation", append([]zap.Field{
		zap.String("tracking_number", a.TrackingNumber),
		zap.String("status", string(a.Status)),
		zap.String("reason", reason),
	}, fields...)...)
	return apperr.Invariant(reason, msg)
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return loan.ErrNotFound
	}
	return err
}

func actorOr(actorID string) string {
	if actorID == "" {
		return systemActor
	}
	return actorID
}
