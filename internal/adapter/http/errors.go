package http

import (
	"errors"
	"net/http"
	"strconv"

	"loan-settlement-engine/internal/domain/apperr"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(e *apperr.Error) int {
	switch e.Kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindExternal:
		if e.Transient {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case apperr.KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {error, reason, field?, existing?}. Internal and
// invariant failures are logged and never leak their cause.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	e, ok := apperr.As(err)
	if !ok {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return err
		}
		log.Error("unhandled error",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Reason: "internal"})
	}

	code := statusFor(e)
	body := ErrorResponse{
		Error:    e.Msg,
		Reason:   e.Reason,
		Field:    e.Field,
		Existing: e.Existing,
	}
	if body.Error == "" {
		body.Error = e.Reason
	}
	switch e.Kind {
	case apperr.KindRateLimited:
		secs := apperr.RetryAfterSeconds(e.RetryAfter)
		body.RetryAfter = secs
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	case apperr.KindInvariant, apperr.KindInternal:
		log.Error("request failed",
			zap.String("path", c.Path()),
			zap.String("reason", e.Reason),
			zap.Error(err))
		body.Error = "internal error"
	case apperr.KindExternal:
		log.Warn("collaborator failure",
			zap.String("path", c.Path()),
			zap.String("service", e.Service),
			zap.Bool("transient", e.Transient),
			zap.Error(err))
	}
	return c.JSON(code, body)
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Reason: "invalid_body"})
}

func invalid(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Reason:  "validation_failed",
		Details: ToFieldErrors(err),
	})
}
