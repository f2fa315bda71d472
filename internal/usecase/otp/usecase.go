package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/notify"
	"loan-settlement-engine/internal/domain/otp"
	"loan-settlement-engine/internal/domain/uow"
	"loan-settlement-engine/internal/infrastructure/logger"
	"loan-settlement-engine/internal/infrastructure/metrics"
	"loan-settlement-engine/pkg/id"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Limiter is the issuance rate limit store, keyed by normalized identifier.
type Limiter interface {
	Allow(ctx context.Context, key string) (retryAfter time.Duration, allowed bool, err error)
}

// Sweeper is implemented by limiters that keep per-key state in process.
type Sweeper interface {
	Sweep(now time.Time) int
}

type Options struct {
	CodeTTL     time.Duration
	MaxAttempts int
	Retention   time.Duration // how long expired rows are kept before the sweep deletes them
}

func DefaultOptions() Options {
	return Options{CodeTTL: 10 * time.Minute, MaxAttempts: 5, Retention: 24 * time.Hour}
}

const codeDigits = "0123456789"

type Usecase struct {
	codes    otp.Repository
	uow      uow.UnitOfWork
	limiter  Limiter
	notifier notify.Notifier
	metrics  *metrics.Recorder
	log      *zap.Logger
	opts     Options
	now      func() time.Time
}

func NewUsecase(codes otp.Repository, tx uow.UnitOfWork, limiter Limiter, notifier notify.Notifier, rec *metrics.Recorder, log *zap.Logger, opts Options) *Usecase {
	def := DefaultOptions()
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = def.CodeTTL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.Retention <= 0 {
		opts.Retention = def.Retention
	}
	return &Usecase{
		codes:    codes,
		uow:      tx,
		limiter:  limiter,
		notifier: notifier,
		metrics:  rec,
		log:      logger.OrNop(log),
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeIdentifier lower-cases and trims an email or phone identifier.
func NormalizeIdentifier(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func parse(identifier, purpose string) (string, otp.Purpose, error) {
	ident := NormalizeIdentifier(identifier)
	if ident == "" {
		return "", "", apperr.Validation("identifier", "required", "identifier is required")
	}
	p := otp.Purpose(strings.ToLower(strings.TrimSpace(purpose)))
	if !p.Valid() {
		return "", "", apperr.Validation("purpose", "invalid_purpose", "purpose must be signup, login or reset")
	}
	return ident, p, nil
}

// Issue creates a fresh code for (identifier, purpose), invalidating earlier unverified ones.
func (u *Usecase) Issue(ctx context.Context, in IssueInput) (*IssueResult, error) {
	ident, purpose, err := parse(in.Identifier, in.Purpose)
	if err != nil {
		return nil, err
	}

	if u.limiter != nil {
		retryAfter, allowed, err := u.limiter.Allow(ctx, "otp:"+ident)
		switch {
		case err != nil:
			// a broken limiter store must not lock everyone out
			u.log.Warn("otp limiter unavailable; allowing issuance", zap.Error(err))
		case !allowed:
			u.metrics.RateLimited()
			return nil, apperr.RateLimited(retryAfter)
		}
	}

	now := u.now()
	code := &otp.Code{
		Identifier: ident,
		Purpose:    purpose,
		Code:       id.RandomString(codeDigits, 6),
		ExpiresAt:  now.Add(u.opts.CodeTTL),
	}
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.OTPs.InvalidateUnverified(ctx, ident, purpose); err != nil {
			return err
		}
		return r.OTPs.Create(ctx, code)
	})
	if err != nil {
		return nil, err
	}
	u.metrics.OTPIssued(string(purpose))

	if u.notifier != nil {
		payload := map[string]any{"code": code.Code, "purpose": string(purpose), "expires_at": code.ExpiresAt}
		if err := u.notifier.Send(ctx, notify.EventOTPIssued, ident, payload); err != nil {
			u.log.Warn("otp delivery failed", zap.String("purpose", string(purpose)), zap.Error(err))
		}
	}

	return &IssueResult{Identifier: ident, Purpose: string(purpose), Code: code.Code, ExpiresAt: code.ExpiresAt}, nil
}

// Verify consumes the newest active code. The attempt is counted before the comparison.
func (u *Usecase) Verify(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	ident, purpose, err := parse(in.Identifier, in.Purpose)
	if err != nil {
		return nil, err
	}
	c, err := u.codes.LatestActive(ctx, ident, purpose, u.now())
	if err != nil {
		return nil, u.lookupErr(err, purpose)
	}
	if err := u.check(ctx, c, in.Code); err != nil {
		return nil, err
	}
	ok, err := u.codes.MarkVerified(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// consumed concurrently
		u.metrics.OTPVerification(string(purpose), "not_found")
		return nil, otp.ErrNotFound
	}
	u.metrics.OTPVerification(string(purpose), "verified")
	return &VerifyResult{Identifier: ident, Purpose: string(purpose), Verified: true}, nil
}

// VerifyForReset accepts an unexpired code even if it was already verified, so a
// reset can be confirmed in two steps. Only the reset purpose gets this.
func (u *Usecase) VerifyForReset(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	if in.Purpose == "" {
		in.Purpose = string(otp.PurposeReset)
	}
	ident, purpose, err := parse(in.Identifier, in.Purpose)
	if err != nil {
		return nil, err
	}
	if purpose != otp.PurposeReset {
		return nil, apperr.Validation("purpose", "invalid_purpose", "only reset codes can be re-verified")
	}
	c, err := u.codes.LatestUnexpired(ctx, ident, purpose, u.now())
	if err != nil {
		return nil, u.lookupErr(err, purpose)
	}
	if err := u.check(ctx, c, in.Code); err != nil {
		return nil, err
	}
	if !c.Verified {
		if _, err := u.codes.MarkVerified(ctx, c.ID); err != nil {
			return nil, err
		}
	}
	u.metrics.OTPVerification(string(purpose), "verified")
	return &VerifyResult{Identifier: ident, Purpose: string(purpose), Verified: true}, nil
}

func (u *Usecase) lookupErr(err error, purpose otp.Purpose) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u.metrics.OTPVerification(string(purpose), "not_found")
		return otp.ErrNotFound
	}
	return err
}

func (u *Usecase) check(ctx context.Context, c *otp.Code, submitted string) error {
	if c.Attempts >= u.opts.MaxAttempts {
		u.metrics.OTPVerification(string(c.Purpose), "locked")
		return otp.ErrTooManyAttempts
	}
	counted, err := u.codes.IncrementAttempts(ctx, c.ID, u.opts.MaxAttempts)
	if err != nil {
		return err
	}
	if !counted {
		u.metrics.OTPVerification(string(c.Purpose), "locked")
		return otp.ErrTooManyAttempts
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(submitted)), []byte(c.Code)) != 1 {
		u.metrics.OTPVerification(string(c.Purpose), "invalid")
		return otp.ErrInvalidCode
	}
	return nil
}

// Sweep hard-deletes codes expired longer than the retention and purges idle limiter keys.
func (u *Usecase) Sweep(ctx context.Context) error {
	now := u.now()
	n, err := u.codes.DeleteExpiredBefore(ctx, now.Add(-u.opts.Retention))
	if err != nil {
		return err
	}
	purged := 0
	if s, ok := u.limiter.(Sweeper); ok {
		purged = s.Sweep(now)
	}
	if n > 0 || purged > 0 {
		u.log.Info("otp sweep", zap.Int64("codes_deleted", n), zap.Int("limiter_keys_purged", purged))
	}
	return nil
}
