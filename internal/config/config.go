package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string `env:"APP_PORT" envDefault:"8080"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"loan-settlement"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	MySQLHost   string `env:"MYSQL_HOST" envDefault:"mysql"`
	MySQLPort   string `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLDB     string `env:"MYSQL_DB" envDefault:"loans"`
	MySQLUser   string `env:"MYSQL_USER" envDefault:"loans"`
	MySQLPass   string `env:"MYSQL_PASS" envDefault:"loans"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"30"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"redis:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	IdempTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"5m"`

	OTP OTPConfig `envPrefix:"OTP_"`

	// Chains
	EthRPCURL       string        `env:"ETH_RPC_URL"`
	USDTContract    string        `env:"USDT_CONTRACT" envDefault:"0xdAC17F958D2ee523a2206206994597C13D831ec7"`
	USDCContract    string        `env:"USDC_CONTRACT" envDefault:"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"`
	BitcoinNetwork  string        `env:"BTC_NETWORK" envDefault:"mainnet"`
	EsploraURL      string        `env:"BTC_EXPLORER_URL" envDefault:"https://blockstream.info/api"`
	EsploraFallback string        `env:"BTC_EXPLORER_FALLBACK_URL" envDefault:"https://mempool.space/api"`
	ExternalTimeout time.Duration `env:"EXTERNAL_TIMEOUT" envDefault:"10s"`

	RateOracleURL string `env:"RATE_ORACLE_URL" envDefault:"https://api.coingecko.com/api/v3"`
	RateOracleKey string `env:"RATE_ORACLE_API_KEY"`

	CardProcessorURL string `env:"CARD_PROCESSOR_URL"`
	CardProcessorKey string `env:"CARD_PROCESSOR_KEY"`

	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	NotificationsTopic string   `env:"KAFKA_NOTIFICATIONS_TOPIC" envDefault:"loan.notifications"`
	AuditTopic         string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"loan.audit"`

	TrackingPrefix   string        `env:"TRACKING_PREFIX" envDefault:"LN"`
	ChargeTTL        time.Duration `env:"CRYPTO_CHARGE_TTL" envDefault:"1h"`
	FeeReminderAfter time.Duration `env:"FEE_REMINDER_AFTER" envDefault:"72h"`
	UnseenTxGrace    time.Duration `env:"UNSEEN_TX_GRACE" envDefault:"1h"`

	Worker WorkerConfig `envPrefix:"WORKER_"`
}

type OTPConfig struct {
	Window      time.Duration `env:"WINDOW" envDefault:"15m"`
	Limit       int           `env:"LIMIT" envDefault:"5"`
	TTL         time.Duration `env:"TTL" envDefault:"10m"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	Retention   time.Duration `env:"RETENTION" envDefault:"24h"`
	// memory or redis
	LimiterBackend string `env:"LIMITER_BACKEND" envDefault:"redis"`
}

type WorkerConfig struct {
	OTPSweepEvery     time.Duration `env:"OTP_SWEEP_INTERVAL" envDefault:"10m"`
	ChargeExpiryEvery time.Duration `env:"CHARGE_EXPIRY_INTERVAL" envDefault:"1m"`
	FeeReminderEvery  time.Duration `env:"FEE_REMINDER_INTERVAL" envDefault:"1h"`
}

// Load reads an optional .env file, then the process environment.
func Load(files ...string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load(files...)

	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	c.OTP.LimiterBackend = strings.ToLower(strings.TrimSpace(c.OTP.LimiterBackend))
	return &c, nil
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.OTP.LimiterBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid OTP_LIMITER_BACKEND %q: want memory or redis", c.OTP.LimiterBackend)
	}
	if c.OTP.Limit <= 0 || c.OTP.Window <= 0 || c.OTP.TTL <= 0 || c.OTP.MaxAttempts <= 0 {
		return errors.New("OTP_LIMIT, OTP_WINDOW, OTP_TTL and OTP_MAX_ATTEMPTS must be positive")
	}
	if c.ChargeTTL <= 0 || c.ExternalTimeout <= 0 {
		return errors.New("CRYPTO_CHARGE_TTL and EXTERNAL_TIMEOUT must be positive")
	}
	if c.TrackingPrefix == "" {
		return errors.New("missing TRACKING_PREFIX")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
