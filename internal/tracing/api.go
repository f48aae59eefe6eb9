package tracing

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type spanConfig struct {
	parent    *Span
	hasParent bool
	level     Level
	target    string
	fields    []zap.Field
}

// SpanOption configures OpenSpan.
type SpanOption func(*spanConfig)

// WithParent sets an explicit parent instead of the current span. A nil
// parent opens a root span.
func WithParent(parent *Span) SpanOption {
	return func(c *spanConfig) {
		c.parent = parent
		c.hasParent = true
	}
}

// WithLevel sets the span level (default info).
func WithLevel(level Level) SpanOption {
	return func(c *spanConfig) { c.level = level }
}

// WithTarget sets the component name filters match on.
func WithTarget(target string) SpanOption {
	return func(c *spanConfig) { c.target = target }
}

// WithFields attaches initial fields.
func WithFields(fields ...zap.Field) SpanOption {
	return func(c *spanConfig) { c.fields = append(c.fields, fields...) }
}

// OpenSpan opens a span on the dispatch scoped to ctx. Its parent is the
// current span of ctx's unit unless WithParent is given. The span is not
// entered.
func OpenSpan(ctx context.Context, name string, opts ...SpanOption) *Span {
	cfg := spanConfig{level: zapcore.InfoLevel}
	for _, opt := range opts {
		opt(&cfg)
	}
	parent := cfg.parent
	if !cfg.hasParent {
		parent = CurrentSpan(ctx)
	}
	target := cfg.target
	if target == "" && parent != nil {
		target = parent.meta.Target
	}
	return FromContext(ctx).NewSpan(parent, Metadata{Name: name, Target: target, Level: cfg.level}, cfg.fields...)
}

// Log emits an event attributed to the current span of ctx's unit.
func Log(ctx context.Context, level Level, msg string, fields ...zap.Field) {
	span := CurrentSpan(ctx)
	target := DefaultTarget
	if span != nil {
		target = span.meta.Target
	}
	FromContext(ctx).emit(span, level, target, msg, fields)
}

// LogWithTarget is Log with an explicit target instead of the current
// span's.
func LogWithTarget(ctx context.Context, level Level, target, msg string, fields ...zap.Field) {
	FromContext(ctx).emit(CurrentSpan(ctx), level, target, msg, fields)
}

// Trace emits a trace-level event.
func Trace(ctx context.Context, msg string, fields ...zap.Field) {
	Log(ctx, TraceLevel, msg, fields...)
}

// Debug emits a debug-level event.
func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	Log(ctx, zapcore.DebugLevel, msg, fields...)
}

// Info emits an info-level event.
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	Log(ctx, zapcore.InfoLevel, msg, fields...)
}

// Warn emits a warn-level event.
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	Log(ctx, zapcore.WarnLevel, msg, fields...)
}

// Error emits an error-level event.
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	Log(ctx, zapcore.ErrorLevel, msg, fields...)
}
