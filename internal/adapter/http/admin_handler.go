package http

import (
	"net/http"

	"loan-settlement-engine/internal/adapter/middleware"
	feeuc "loan-settlement-engine/internal/usecase/fee"
	loanuc "loan-settlement-engine/internal/usecase/loan"
	paymentuc "loan-settlement-engine/internal/usecase/payment"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AdminHandler serves the back-office routes. Role checks happen in the router.
type AdminHandler struct {
	loans   LoanService
	fees    FeeService
	wallets WalletService
	log     *zap.Logger
}

func NewAdminHandler(loans LoanService, fees FeeService, wallets WalletService, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{loans: loans, fees: fees, wallets: wallets, log: log}
}

type failPaymentReq struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

func (h *AdminHandler) StartReview(c echo.Context) error {
	dto, err := h.loans.StartReview(c.Request().Context(), c.Param("tracking_number"), middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) Approve(c echo.Context) error {
	var req loanuc.ApproveInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	dto, err := h.loans.Approve(c.Request().Context(), c.Param("tracking_number"), req, middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) Reject(c echo.Context) error {
	var req loanuc.RejectInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	dto, err := h.loans.Reject(c.Request().Context(), c.Param("tracking_number"), req, middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) ConfirmPayment(c echo.Context) error {
	dto, err := h.loans.ConfirmPayment(c.Request().Context(), c.Param("tracking_number"), middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) FailPayment(c echo.Context) error {
	var req failPaymentReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	res, err := h.loans.FailPayment(c.Request().Context(), c.Param("tracking_number"), c.Param("payment_id"), req.Reason, middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) Disburse(c echo.Context) error {
	var req loanuc.DisburseInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	dto, err := h.loans.Disburse(c.Request().Context(), c.Param("tracking_number"), req, middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *AdminHandler) UpdateDisbursement(c echo.Context) error {
	var req loanuc.DisbursementUpdateInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	dto, err := h.loans.UpdateDisbursementStatus(c.Request().Context(), c.Param("disbursement_id"), req, middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) GetFeeConfiguration(c echo.Context) error {
	dto, err := h.fees.Get(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) ConfigureFee(c echo.Context) error {
	var req feeuc.ConfigureInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	dto, err := h.fees.Configure(c.Request().Context(), req, middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) ConfigureWallet(c echo.Context) error {
	var req paymentuc.WalletInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	// path wins over body
	req.Currency = c.Param("currency")
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	dto, err := h.wallets.ConfigureWallet(c.Request().Context(), req, middleware.ActorFrom(c).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
