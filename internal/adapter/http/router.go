package http

import (
	"net/http"
	"time"

	"loan-settlement-engine/internal/adapter/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Services struct {
	Loans   LoanService
	OTP     OTPService
	Fees    FeeService
	Wallets WalletService
}

type RouterConfig struct {
	// Idempotency is skipped when Store is nil.
	Store          middleware.Store
	IdempotencyTTL time.Duration
	Metrics        http.Handler
	Checks         map[string]Check
	Log            *zap.Logger
}

// NewRouter builds the echo instance with every route registered.
func NewRouter(s Services, cfg RouterConfig) *echo.Echo {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("actor_id", middleware.ActorFrom(c).ID),
			}
			if id := c.Request().Header.Get(middleware.HeaderRequestID); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Actors())

	h := NewHandler(cfg.Checks)
	e.GET("/health", h.Health)
	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics))
	}

	var mutating []echo.MiddlewareFunc
	if cfg.Store != nil {
		mutating = append(mutating, middleware.Idempotency(cfg.Store, cfg.IdempotencyTTL, log))
	}

	otp := NewOTPHandler(s.OTP, log)
	og := e.Group("/otp", mutating...)
	og.POST("", otp.Issue)
	og.POST("/verify", otp.Verify)
	og.POST("/verify-reset", otp.VerifyForReset)

	loans := NewLoanHandler(s.Loans, log)
	ag := e.Group("/applications", mutating...)
	ag.POST("", loans.Submit)
	ag.GET("/:tracking_number", loans.Get)
	ag.GET("/:tracking_number/payments", loans.ListPayments)
	ag.POST("/:tracking_number/payments", loans.InitiatePayment)
	ag.POST("/:tracking_number/payments/:payment_id/verify", loans.VerifyPayment)
	ag.POST("/:tracking_number/cancel", loans.Cancel)

	admin := NewAdminHandler(s.Loans, s.Fees, s.Wallets, log)
	adm := e.Group("/admin", append([]echo.MiddlewareFunc{middleware.RequireRole(middleware.RoleAdmin)}, mutating...)...)
	adm.POST("/applications/:tracking_number/review", admin.StartReview)
	adm.POST("/applications/:tracking_number/approve", admin.Approve)
	adm.POST("/applications/:tracking_number/reject", admin.Reject)
	adm.POST("/applications/:tracking_number/confirm-payment", admin.ConfirmPayment)
	adm.POST("/applications/:tracking_number/payments/:payment_id/fail", admin.FailPayment)
	adm.POST("/applications/:tracking_number/disburse", admin.Disburse)
	adm.PATCH("/disbursements/:disbursement_id", admin.UpdateDisbursement)
	adm.GET("/fee-configuration", admin.GetFeeConfiguration)
	adm.PUT("/fee-configuration", admin.ConfigureFee)
	adm.PUT("/wallets/:currency", admin.ConfigureWallet)

	return e
}
