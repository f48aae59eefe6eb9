package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type otelSpanKey struct{}

// OTelLayer mirrors tracing spans into OpenTelemetry spans. Parentage
// follows the tracing span tree; events become span events and error
// events set the span status.
type OTelLayer struct {
	tracer     oteltrace.Tracer
	redactKeys map[string]struct{}
}

// NewOTelLayer returns a layer exporting through tracer. Attributes whose
// key is listed in redactKeys (case-insensitive) are replaced by [REDACTED].
func NewOTelLayer(tracer oteltrace.Tracer, redactKeys ...string) *OTelLayer {
	keys := make(map[string]struct{}, len(redactKeys))
	for _, k := range redactKeys {
		keys[strings.ToLower(k)] = struct{}{}
	}
	return &OTelLayer{tracer: tracer, redactKeys: keys}
}

// Name implements tracing.Layer.
func (l *OTelLayer) Name() string { return "otel" }

// OnNewSpan implements tracing.NewSpanHook.
func (l *OTelLayer) OnNewSpan(span *tracing.Span) {
	parent := context.Background()
	if p := span.Parent(); p != nil {
		if otelSpan, ok := OTelSpan(p); ok {
			parent = oteltrace.ContextWithSpan(parent, otelSpan)
		}
	}
	attrs := append(l.attributes(span.Fields()),
		attribute.String("tracing.target", span.Metadata().Target),
		attribute.Int64("tracing.span_id", int64(span.ID())),
	)
	_, otelSpan := l.tracer.Start(parent, span.Name(),
		oteltrace.WithTimestamp(span.Start()),
		oteltrace.WithAttributes(attrs...),
	)
	span.SetExtension(otelSpanKey{}, otelSpan)
}

// OnRecord implements tracing.RecordHook.
func (l *OTelLayer) OnRecord(span *tracing.Span, fields []zap.Field) {
	if otelSpan, ok := OTelSpan(span); ok {
		otelSpan.SetAttributes(l.attributes(fields)...)
	}
}

// OnEvent implements tracing.EventHook. Context-less events have no span
// to attach to and are skipped.
func (l *OTelLayer) OnEvent(ev *tracing.Event) {
	if ev.Span == nil {
		return
	}
	otelSpan, ok := OTelSpan(ev.Span)
	if !ok {
		return
	}
	attrs := append(l.attributes(ev.Fields), attribute.String("level", ev.Level.String()))
	otelSpan.AddEvent(ev.Message, oteltrace.WithTimestamp(ev.Time), oteltrace.WithAttributes(attrs...))
	if ev.Level >= zapcore.ErrorLevel {
		otelSpan.SetStatus(codes.Error, ev.Message)
	}
}

// OnClose implements tracing.CloseHook.
func (l *OTelLayer) OnClose(span *tracing.Span) {
	if otelSpan, ok := OTelSpan(span); ok {
		otelSpan.End(oteltrace.WithTimestamp(span.Start().Add(span.Elapsed())))
	}
}

// OTelSpan returns the OpenTelemetry span mirroring span, if any.
func OTelSpan(span *tracing.Span) (oteltrace.Span, bool) {
	v, ok := span.Extension(otelSpanKey{})
	if !ok {
		return nil, false
	}
	otelSpan, ok := v.(oteltrace.Span)
	return otelSpan, ok
}

// attributes converts zap fields by encoding them through a map encoder.
func (l *OTelLayer) attributes(fields []zap.Field) []attribute.KeyValue {
	if len(fields) == 0 {
		return nil
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	attrs := make([]attribute.KeyValue, 0, len(enc.Fields))
	for k, v := range enc.Fields {
		if _, redact := l.redactKeys[strings.ToLower(k)]; redact {
			attrs = append(attrs, attribute.String(k, "[REDACTED]"))
			continue
		}
		attrs = append(attrs, toAttribute(k, v))
	}
	return attrs
}

func toAttribute(k string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(k, val)
	case bool:
		return attribute.Bool(k, val)
	case int64:
		return attribute.Int64(k, val)
	case int32:
		return attribute.Int64(k, int64(val))
	case int:
		return attribute.Int(k, val)
	case uint64:
		return attribute.Int64(k, int64(val))
	case uint32:
		return attribute.Int64(k, int64(val))
	case float64:
		return attribute.Float64(k, val)
	case float32:
		return attribute.Float64(k, float64(val))
	case time.Duration:
		return attribute.String(k, val.String())
	case time.Time:
		return attribute.String(k, val.Format(time.RFC3339Nano))
	default:
		return attribute.String(k, fmt.Sprint(val))
	}
}
