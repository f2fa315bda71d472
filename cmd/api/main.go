package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loan-settlement-engine/internal/adapter/card"
	"loan-settlement-engine/internal/adapter/chain"
	"loan-settlement-engine/internal/adapter/events"
	httpadp "loan-settlement-engine/internal/adapter/http"
	"loan-settlement-engine/internal/adapter/ratelimit"
	"loan-settlement-engine/internal/adapter/rates"
	repo "loan-settlement-engine/internal/adapter/repository/mysql"
	"loan-settlement-engine/internal/config"
	"loan-settlement-engine/internal/domain/notify"
	"loan-settlement-engine/internal/infrastructure/cache"
	"loan-settlement-engine/internal/infrastructure/db"
	"loan-settlement-engine/internal/infrastructure/logger"
	"loan-settlement-engine/internal/infrastructure/metrics"
	"loan-settlement-engine/internal/usecase/duplicate"
	feeuc "loan-settlement-engine/internal/usecase/fee"
	loanuc "loan-settlement-engine/internal/usecase/loan"
	otpuc "loan-settlement-engine/internal/usecase/otp"
	paymentuc "loan-settlement-engine/internal/usecase/payment"
	"loan-settlement-engine/internal/worker"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), db.Options{
		LogLevel:        gormlogger.Warn,
		Log:             log,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(gdb, log, repo.Models()...); err != nil {
			return err
		}
	}
	rdb, err := cache.OpenRedis(cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	rec := metrics.New()

	// notifications and audit
	var (
		notifier notify.Notifier = events.NewLogSink(log)
		auditor  notify.Auditor  = events.NewLogSink(log)
	)
	if len(cfg.KafkaBrokers) > 0 {
		w := events.NewWriter(cfg.KafkaBrokers, log)
		defer func() { _ = w.Close() }()
		pub := events.NewPublisher(w, events.Topics{Notifications: cfg.NotificationsTopic, Audit: cfg.AuditTopic}, cfg.ExternalTimeout, log)
		notifier, auditor = pub, pub
	} else {
		log.Warn("KAFKA_BROKERS not set; notifications and audit go to the log only")
	}

	chains, err := buildChains(cfg, log)
	if err != nil {
		return err
	}
	oracle := rates.NewCoinGecko(cfg.RateOracleURL, cfg.ExternalTimeout,
		rates.WithAPIKey(cfg.RateOracleKey), rates.WithLogger(log))
	cards := card.NewClient(cfg.CardProcessorURL, cfg.CardProcessorKey, cfg.ExternalTimeout, log)

	loans := repo.NewLoanRepository(gdb)
	tx := repo.NewGormUoW(gdb)

	var limiter otpuc.Limiter
	switch cfg.OTP.LimiterBackend {
	case "memory":
		limiter = ratelimit.NewMemory(cfg.OTP.Limit, cfg.OTP.Window)
	default:
		limiter = ratelimit.NewRedis(rdb, "otp:rl:", cfg.OTP.Limit, cfg.OTP.Window)
	}

	fees := feeuc.NewUsecase(repo.NewFeeRepository(gdb), tx, log)
	otps := otpuc.NewUsecase(repo.NewOTPRepository(gdb), tx, limiter, notifier, rec, log, otpuc.Options{
		CodeTTL:     cfg.OTP.TTL,
		MaxAttempts: cfg.OTP.MaxAttempts,
		Retention:   cfg.OTP.Retention,
	})
	gateway := paymentuc.NewGateway(oracle, chains, cards, repo.NewWalletRepository(gdb), rec, log, paymentuc.Options{ChargeTTL: cfg.ChargeTTL})
	lifecycle := loanuc.NewUsecase(loanuc.Deps{
		Loans:         loans,
		Payments:      repo.NewPaymentRepository(gdb),
		Disbursements: repo.NewDisbursementRepository(gdb),
		UOW:           tx,
		Guard:         duplicate.NewGuard(loans),
		Gateway:       gateway,
		Notifier:      notifier,
		Auditor:       auditor,
		Metrics:       rec,
		Log:           log,
	}, loanuc.Options{
		TrackingPrefix:   cfg.TrackingPrefix,
		FeeReminderAfter: cfg.FeeReminderAfter,
		UnseenTxGrace:    cfg.UnseenTxGrace,
	})

	sweeper := worker.NewSweeper(rec, log,
		worker.Job{Name: "otp_sweep", Interval: cfg.Worker.OTPSweepEvery, Run: otps.Sweep},
		worker.Job{Name: "charge_expiry", Interval: cfg.Worker.ChargeExpiryEvery, Run: worker.Counted(log, "charge_expiry", lifecycle.ExpireCharges)},
		worker.Job{Name: "fee_reminders", Interval: cfg.Worker.FeeReminderEvery, Run: worker.Counted(log, "fee_reminders", lifecycle.SendFeeReminders)},
	)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	e := httpadp.NewRouter(httpadp.Services{
		Loans:   lifecycle,
		OTP:     otps,
		Fees:    fees,
		Wallets: gateway,
	}, httpadp.RouterConfig{
		Store:          rdb,
		IdempotencyTTL: cfg.IdempTTL,
		Metrics:        rec.Handler(),
		Checks: map[string]httpadp.Check{
			"mysql": sqlDB.PingContext,
			"redis": cache.HealthCheck(rdb),
		},
		Log: log,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.AppPort
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// buildChains registers BTC always and the Ethereum family when an RPC URL is set.
func buildChains(cfg *config.Config, log *zap.Logger) (*chain.Registry, error) {
	params, err := chain.NetParams(cfg.BitcoinNetwork)
	if err != nil {
		return nil, err
	}
	explorer := chain.NewFallbackExplorer(
		chain.NewEsplora(cfg.EsploraURL, cfg.ExternalTimeout),
		chain.NewEsplora(cfg.EsploraFallback, cfg.ExternalTimeout),
		log)
	reg := chain.NewRegistry(chain.NewBitcoin(explorer, params, cfg.ExternalTimeout, log))

	if cfg.EthRPCURL == "" {
		log.Warn("ETH_RPC_URL not set; ETH, USDT and USDC payments are disabled")
		return reg, nil
	}
	client, err := ethclient.Dial(cfg.EthRPCURL)
	if err != nil {
		return nil, err
	}
	opts := []chain.EthereumOption{chain.WithEthereumTimeout(cfg.ExternalTimeout), chain.WithEthereumLogger(log)}
	reg.Register(chain.NewEther(client, opts...))
	reg.Register(chain.NewERC20(client, "USDT", common.HexToAddress(cfg.USDTContract), 6, opts...))
	reg.Register(chain.NewERC20(client, "USDC", common.HexToAddress(cfg.USDCContract), 6, opts...))
	return reg, nil
}
