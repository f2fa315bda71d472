package http

import (
	"context"
	"net/http"

	otpuc "loan-settlement-engine/internal/usecase/otp"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type OTPHandler struct {
	uc  OTPService
	log *zap.Logger
}

func NewOTPHandler(uc OTPService, log *zap.Logger) *OTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OTPHandler{uc: uc, log: log}
}

// Issue answers 202: the code itself only travels through the notifier.
func (h *OTPHandler) Issue(c echo.Context) error {
	var req otpuc.IssueInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	res, err := h.uc.Issue(c.Request().Context(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusAccepted, res)
}

func (h *OTPHandler) Verify(c echo.Context) error {
	return h.verify(c, h.uc.Verify)
}

func (h *OTPHandler) VerifyForReset(c echo.Context) error {
	return h.verify(c, h.uc.VerifyForReset)
}

func (h *OTPHandler) verify(c echo.Context, fn func(context.Context, otpuc.VerifyInput) (*otpuc.VerifyResult, error)) error {
	var req otpuc.VerifyInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	res, err := fn(c.Request().Context(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}
