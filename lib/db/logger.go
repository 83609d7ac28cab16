package db

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"gorm.io/gorm/logger"
)

// slowQueryThreshold is where a successful query stops being debug noise and
// becomes a warning. List pages run several queries per request; anything
// slower than this is worth seeing in production logs.
const slowQueryThreshold = 200 * time.Millisecond

// GormLogger adapts the store's query log to slog. Record-not-found is
// suppressed: missing rows are an expected outcome (detail 404s, dedup
// checks), not a store failure.
type GormLogger struct {
	logger *slog.Logger
	level  logger.LogLevel
}

func NewGormLogger(log *slog.Logger) *GormLogger {
	return &GormLogger{logger: log, level: logger.Warn}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.logger.InfoContext(ctx, msg, slog.Any("data", data))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.logger.WarnContext(ctx, msg, slog.Any("data", data))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.logger.ErrorContext(ctx, msg, slog.Any("data", data))
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound):
		l.logger.ErrorContext(ctx, "query failed",
			slog.Any("error", err),
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed))
	case elapsed > slowQueryThreshold:
		l.logger.WarnContext(ctx, "slow query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed))
	default:
		l.logger.DebugContext(ctx, "query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed))
	}
}
