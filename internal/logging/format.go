package logging

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FormatLayer is the sink stage: it renders span boundaries and events as
// records on a zap core. Span records are named after the span:
//
//	[ADDING A NEW SUBSCRIBER - START]
//	[ADDING A NEW SUBSCRIBER - EVENT] message
//	[ADDING A NEW SUBSCRIBER - END]
//
// Fields come from the storage layer when it runs before this one.
type FormatLayer struct {
	core zapcore.Core
}

// NewFormatLayer builds the zap core described by cfg.
func NewFormatLayer(cfg *Config, otelProvider log.LoggerProvider) (*FormatLayer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	core, err := newDualCore(cfg, otelProvider)
	if err != nil {
		return nil, err
	}
	return NewFormatLayerWithCore(core), nil
}

// NewFormatLayerWithCore renders onto an existing core.
func NewFormatLayerWithCore(core zapcore.Core) *FormatLayer {
	return &FormatLayer{core: core}
}

// Name implements tracing.Layer.
func (l *FormatLayer) Name() string { return "format" }

// OnNewSpan implements tracing.NewSpanHook.
func (l *FormatLayer) OnNewSpan(span *tracing.Span) {
	l.write(span.Metadata().Level, span.Start(), span.Metadata().Target, spanMessage(span, "START", ""), spanRecordFields(span))
}

// OnClose implements tracing.CloseHook.
func (l *FormatLayer) OnClose(span *tracing.Span) {
	fields := append(spanRecordFields(span), zap.Int64("elapsed_milliseconds", span.Elapsed().Milliseconds()))
	l.write(span.Metadata().Level, span.Start().Add(span.Elapsed()), span.Metadata().Target, spanMessage(span, "END", ""), fields)
}

// OnEvent implements tracing.EventHook.
func (l *FormatLayer) OnEvent(ev *tracing.Event) {
	fields := ev.AllFields()
	msg := ev.Message
	if ev.Span != nil {
		msg = spanMessage(ev.Span, "EVENT", ev.Message)
		fields = append(spanIDFields(ev.Span), fields...)
	}
	l.write(ev.Level, ev.Time, ev.Target, msg, fields)
}

// Sync flushes the core. EINVAL and ENOTTY from syncing a terminal are ignored.
func (l *FormatLayer) Sync() error {
	if err := l.core.Sync(); err != nil && !isIgnorableSyncError(err) {
		return err
	}
	return nil
}

func (l *FormatLayer) write(level zapcore.Level, at time.Time, target, msg string, fields []zap.Field) {
	ent := zapcore.Entry{Level: level, Time: at, LoggerName: target, Message: msg}
	if ce := l.core.Check(ent, nil); ce != nil {
		ce.Write(fields...)
	}
}

func spanMessage(span *tracing.Span, phase, msg string) string {
	prefix := "[" + strings.ToUpper(span.Name()) + " - " + phase + "]"
	if msg == "" {
		return prefix
	}
	return prefix + " " + msg
}

func spanIDFields(span *tracing.Span) []zap.Field {
	fields := []zap.Field{zap.Uint64("span_id", uint64(span.ID()))}
	if span.ParentID() != 0 {
		fields = append(fields, zap.Uint64("parent_span_id", uint64(span.ParentID())))
	}
	return fields
}

func spanRecordFields(span *tracing.Span) []zap.Field {
	fields := tracing.AccumulatedFields(span)
	if len(fields) == 0 {
		fields = span.Fields()
	}
	return append(spanIDFields(span), fields...)
}

// isIgnorableSyncError reports the harmless errors Linux returns when
// syncing stdout or stderr.
func isIgnorableSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
