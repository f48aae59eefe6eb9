package telemetry

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

func newLayerContext(t *testing.T, layers ...tracing.Layer) context.Context {
	t.Helper()
	p, err := tracing.NewPipeline(append([]tracing.Layer{tracing.NewStorageLayer()}, layers...)...)
	require.NoError(t, err)
	ctx := tracing.ContextWithDispatch(context.Background(), tracing.NewDispatch(p))
	return tracing.ContextWithUnit(ctx, tracing.NewUnit())
}

func TestOTelLayer_MirrorsSpanTree(t *testing.T) {
	tel := NewTestTelemetry()
	ctx := newLayerContext(t, NewOTelLayer(tel.Tracer("newsletter"), "password"))
	unit := tracing.UnitFromContext(ctx)

	root := tracing.OpenSpan(ctx, "Adding a new subscriber",
		tracing.WithFields(zap.String("request_id", "r-1"), zap.String("password", "hunter2")))
	root.InScope(unit, func() {
		query := tracing.OpenSpan(ctx, "Saving new subscriber details in the database")
		query.InScope(unit, func() {
			tracing.Error(ctx, "Failed to execute query", zap.Int("attempt", 1))
		})
		query.Close()
	})
	root.Record(zap.Bool("done", true))
	root.Close()

	require.Len(t, tel.Spans(), 2)
	tel.AssertSpanExists(t, "Adding a new subscriber")
	tel.AssertSpanAttribute(t, "Adding a new subscriber", "request_id", "r-1")
	tel.AssertSpanAttribute(t, "Adding a new subscriber", "password", "[REDACTED]")
	tel.AssertSpanAttribute(t, "Adding a new subscriber", "done", true)

	rootSpan := tel.SpanByName("Adding a new subscriber")
	query := tel.SpanByName("Saving new subscriber details in the database")
	require.NotNil(t, query)
	assert.Equal(t, rootSpan.SpanContext().SpanID(), query.Parent().SpanID())
	assert.Equal(t, rootSpan.SpanContext().TraceID(), query.SpanContext().TraceID())

	require.Len(t, query.Events(), 1)
	assert.Equal(t, "Failed to execute query", query.Events()[0].Name)
	assert.Equal(t, codes.Error, query.Status().Code)
	assert.Equal(t, codes.Unset, rootSpan.Status().Code)
}

func TestOTelLayer_ContextlessEventsSkipped(t *testing.T) {
	tel := NewTestTelemetry()
	ctx := newLayerContext(t, NewOTelLayer(tel.Tracer("newsletter")))
	tracing.Info(ctx, "no span")
	assert.Empty(t, tel.Spans())
}

func TestMetricsLayer(t *testing.T) {
	reg := prometheus.NewRegistry()
	layer, err := NewMetricsLayer(reg)
	require.NoError(t, err)
	ctx := newLayerContext(t, layer)

	span := tracing.OpenSpan(ctx, "work")
	assert.InDelta(t, 1, testutil.ToFloat64(layer.open), 0.001)

	span.Event(tracing.TraceLevel, "fine grained")
	span.Event(zap.InfoLevel, "first")
	span.Event(zap.InfoLevel, "second")
	span.Close()

	assert.InDelta(t, 0, testutil.ToFloat64(layer.open), 0.001)
	assert.InDelta(t, 2, testutil.ToFloat64(layer.events.WithLabelValues("info", tracing.DefaultTarget)), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(layer.events.WithLabelValues("trace", tracing.DefaultTarget)), 0.001)
	assert.Equal(t, 1, testutil.CollectAndCount(layer.duration))

	_, err = NewMetricsLayer(reg)
	assert.Error(t, err, "registering twice must fail")
}
