package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tunes the gorm session and its connection pool. Zero pool values
// fall back to defaults sized for a single API instance.
type Options struct {
	LogLevel        logger.LogLevel
	Log             *zap.Logger
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (o Options) withDefaults() Options {
	if o.LogLevel == 0 {
		o.LogLevel = logger.Warn
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 30
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 10
	}
	if o.MaxIdleConns > o.MaxOpenConns {
		o.MaxIdleConns = o.MaxOpenConns
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = 30 * time.Minute
	}
	if o.ConnMaxIdleTime <= 0 {
		o.ConnMaxIdleTime = 10 * time.Minute
	}
	return o
}

func OpenGorm(dsn string, opts Options) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn), opts)
}

// OpenGormWithDialector opens, sizes the pool and pings. Duplicate-key errors
// surface as gorm.ErrDuplicatedKey so unique indexes can guard invariants.
func OpenGormWithDialector(dial gorm.Dialector, opts Options) (*gorm.DB, error) {
	o := opts.withDefaults()
	// the pool is sized before the single explicit ping below
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:               logger.Default.LogMode(o.LogLevel),
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dial.Name(), err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(o.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(o.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s: %w", dial.Name(), err)
	}
	o.Log.Info("database connected",
		zap.String("dialect", dial.Name()),
		zap.Int("max_open_conns", o.MaxOpenConns))
	return db, nil
}

// Migrate creates or alters tables for models.
func Migrate(db *gorm.DB, log *zap.Logger, models ...any) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if log != nil {
		log.Info("schema migrated", zap.Int("models", len(models)))
	}
	return nil
}
