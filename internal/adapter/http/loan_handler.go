package http

import (
	"net/http"

	"loan-settlement-engine/internal/adapter/middleware"
	"loan-settlement-engine/internal/domain/payment"
	loanuc "loan-settlement-engine/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LoanHandler serves the applicant side of an application.
type LoanHandler struct {
	uc  LoanService
	log *zap.Logger
}

func NewLoanHandler(uc LoanService, log *zap.Logger) *LoanHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoanHandler{uc: uc, log: log}
}

func (h *LoanHandler) Submit(c echo.Context) error {
	var req loanuc.SubmitInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	// the gateway-asserted identity wins over the body
	if a := middleware.ActorFrom(c); a.ID != "" {
		req.UserID = a.ID
	}
	dto, err := h.uc.Submit(c.Request().Context(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) Get(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("tracking_number"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) ListPayments(c echo.Context) error {
	out, err := h.uc.ListPayments(c.Request().Context(), c.Param("tracking_number"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"payments": out})
}

func (h *LoanHandler) InitiatePayment(c echo.Context) error {
	var req loanuc.InitiatePaymentInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	res, err := h.uc.InitiatePayment(c.Request().Context(), c.Param("tracking_number"), req, middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// VerifyPayment is safe to poll; a result that is still processing comes back as 202.
func (h *LoanHandler) VerifyPayment(c echo.Context) error {
	var req loanuc.VerifyPaymentInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	res, err := h.uc.VerifyPayment(c.Request().Context(), c.Param("tracking_number"), c.Param("payment_id"), req, middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if st := payment.Status(res.Payment.Status); st == payment.StatusProcessing || st == payment.StatusPending {
		return c.JSON(http.StatusAccepted, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) Cancel(c echo.Context) error {
	dto, err := h.uc.Cancel(c.Request().Context(), c.Param("tracking_number"), middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
