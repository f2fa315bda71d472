// Package apperr is the error taxonomy shared by every usecase and adapter.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindRateLimited   Kind = "rate_limited"
	KindExternal      Kind = "external_service"
	KindInvariant     Kind = "invariant_violation"
	KindConfiguration Kind = "configuration"
	KindInternal      Kind = "internal"
)

// Error carries a stable Reason that callers (and API clients) can switch on.
type Error struct {
	Kind   Kind
	Reason string
	Msg    string

	Field      string        // validation: offending input field
	Existing   string        // conflict: id of the record that caused it
	RetryAfter time.Duration // rate limited
	Service    string        // external: which collaborator
	Transient  bool          // external: retry later vs. permanent

	Err error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Reason
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, and on Reason when the target has one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// With returns a copy with a more specific message, keeping Kind and Reason.
func (e *Error) With(format string, args ...any) *Error {
	cp := *e
	cp.Msg = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy that wraps cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func Validation(field, reason, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Reason: reason, Msg: msg}
}

func Conflict(reason, msg string) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Msg: msg}
}

func NotFound(reason, msg string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason, Msg: msg}
}

func RateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Reason:     "rate_limited",
		Msg:        fmt.Sprintf("too many requests; retry after %d seconds", RetryAfterSeconds(retryAfter)),
		RetryAfter: retryAfter,
	}
}

func External(service string, transient bool, cause error) *Error {
	reason := "external_permanent"
	if transient {
		reason = "external_unavailable"
	}
	return &Error{
		Kind:      KindExternal,
		Reason:    reason,
		Msg:       service + " call failed",
		Service:   service,
		Transient: transient,
		Err:       cause,
	}
}

func Invariant(reason, msg string) *Error {
	return &Error{Kind: KindInvariant, Reason: reason, Msg: msg}
}

func Configuration(reason, msg string) *Error {
	return &Error{Kind: KindConfiguration, Reason: reason, Msg: msg}
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the Kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// IsTransient reports whether err is an external failure worth retrying later.
func IsTransient(err error) bool {
	e, ok := As(err)
	return ok && e.Kind == KindExternal && e.Transient
}

// RetryAfterSeconds rounds up so a client never retries too early.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}
