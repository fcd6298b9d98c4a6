package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/reelwork/marketplace/pkg/logger"
)

// Options tunes the connection pool and logging of a PostgreSQL handle.
type Options struct {
	// Name labels log lines, e.g. "main" or "identity".
	Name         string
	Verbose      bool
	MaxOpenConns int
	MaxIdleConns int
	MaxRetries   uint64
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "main"
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 25
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = o.MaxOpenConns
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 5
	}
	return o
}

// OpenPostgres opens a Gorm PostgreSQL connection with retry and sane pooling defaults.
func OpenPostgres(ctx context.Context, dsn string, opts Options) (*gorm.DB, error) {
	opts = opts.withDefaults()

	logLevel := gormlogger.Silent
	if opts.Verbose {
		logLevel = gormlogger.Warn
	}
	gl := zapGormLogger{zap: logger.L().With(zap.String("db", opts.Name)), level: logLevel}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, opts.MaxRetries), ctx)

	var db *gorm.DB
	err := backoff.RetryNotify(func() error {
		var openErr error
		db, openErr = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gl})
		return openErr
	}, policy, func(err error, wait time.Duration) {
		logger.L().Warn("postgres not ready, retrying", zap.String("db", opts.Name), zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("open postgres canceled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("open postgres failed after retries: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db db() error: %w", err)
	}

	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := Ping(ctx, db); err != nil {
		return nil, err
	}

	return db, nil
}

// Ping checks the connection with a short timeout.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db db() error: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctxPing); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type zapGormLogger struct {
	zap   *zap.Logger
	level gormlogger.LogLevel
}

func (l zapGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	l.level = level
	return l
}

func (l zapGormLogger) Info(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.zap.Sugar().Infof(s, args...)
	}
}

func (l zapGormLogger) Warn(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.zap.Sugar().Warnf(s, args...)
	}
}

func (l zapGormLogger) Error(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.zap.Sugar().Errorf(s, args...)
	}
}

func (l zapGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == gormlogger.Silent {
		return
	}
	sql, rows := fc()
	dur := time.Since(begin)
	log := l.zap
	if id := logger.RequestID(ctx); id != "" {
		log = log.With(zap.String("request_id", id))
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("gorm query error", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql), zap.Error(err))
		return
	}
	log.Debug("gorm query", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql))
}
