package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func newCaptureLogger() (*GormLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewGormLogger(log), &buf
}

func query(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestTraceLogsFailedQueries(t *testing.T) {
	l, buf := newCaptureLogger()

	l.Trace(context.Background(), time.Now(), query("SELECT 1", 0), errors.New("locked"))

	assert.Contains(t, buf.String(), "query failed")
	assert.Contains(t, buf.String(), "locked")
}

func TestTraceSuppressesRecordNotFound(t *testing.T) {
	l, buf := newCaptureLogger()

	l.Trace(context.Background(), time.Now(), query("SELECT 1", 0), logger.ErrRecordNotFound)

	assert.NotContains(t, buf.String(), "query failed")
}

func TestTraceWarnsOnSlowQueries(t *testing.T) {
	l, buf := newCaptureLogger()

	begin := time.Now().Add(-2 * slowQueryThreshold)
	l.Trace(context.Background(), begin, query("SELECT * FROM movies", 48), nil)

	assert.Contains(t, buf.String(), "slow query")
}

func TestTraceSilentLevelLogsNothing(t *testing.T) {
	l, buf := newCaptureLogger()
	silent := l.LogMode(logger.Silent)

	silent.(*GormLogger).Trace(context.Background(), time.Now(), query("SELECT 1", 0), errors.New("locked"))

	assert.Empty(t, buf.String())
}

func TestInfoSuppressedAtDefaultLevel(t *testing.T) {
	l, buf := newCaptureLogger()

	// The default level is Warn; gorm's own info chatter stays out.
	l.Info(context.Background(), "auto migration started")
	assert.Empty(t, buf.String())

	l.Warn(context.Background(), "index missing")
	assert.Contains(t, buf.String(), "index missing")
}
