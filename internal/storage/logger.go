package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// QueryTarget is the tracing target of statement events.
const QueryTarget = "newsletter.storage"

// queryLogger routes gorm's statement log into the tracing pipeline, so
// statements are attributed to whichever span is current on the caller's
// unit.
type queryLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newQueryLogger() *queryLogger {
	return &queryLogger{level: gormlogger.Info, slowThreshold: 200 * time.Millisecond}
}

// LogMode implements gormlogger.Interface.
func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

// Info implements gormlogger.Interface.
func (l *queryLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.emit(ctx, zap.InfoLevel, fmt.Sprintf(msg, args...))
	}
}

// Warn implements gormlogger.Interface.
func (l *queryLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.emit(ctx, zap.WarnLevel, fmt.Sprintf(msg, args...))
	}
}

// Error implements gormlogger.Interface.
func (l *queryLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.emit(ctx, zap.ErrorLevel, fmt.Sprintf(msg, args...))
	}
}

// Trace implements gormlogger.Interface. Failed and slow statements are
// warnings; the rest are trace-level.
func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("db.statement", sql),
		zap.Int64("db.rows_affected", rows),
		zap.Float64("elapsed_milliseconds", float64(elapsed.Microseconds())/1000),
	}
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		l.emit(ctx, zap.WarnLevel, "Statement failed", append(fields, zap.Error(err))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		l.emit(ctx, zap.WarnLevel, "Slow statement", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	case l.level >= gormlogger.Info:
		l.emit(ctx, tracing.TraceLevel, "Statement executed", fields...)
	}
}

func (l *queryLogger) emit(ctx context.Context, level tracing.Level, msg string, fields ...zap.Field) {
	tracing.LogWithTarget(ctx, level, QueryTarget, msg, fields...)
}
