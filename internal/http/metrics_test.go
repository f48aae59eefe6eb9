package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	reader := metric.NewManualReader()
	m := NewHTTPMetrics(metric.NewMeterProvider(metric.WithReader(reader)), nil)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/health_check", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.POST("/subscriptions", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/health_check"},
		{http.MethodGet, "/health_check"},
		{http.MethodPost, "/subscriptions"},
	} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.path, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byName := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, mm := range sm.Metrics {
			byName[mm.Name] = mm
		}
	}

	requests, ok := byName["newsletter.http.requests_total"]
	require.True(t, ok, "requests counter not found")
	sum, ok := requests.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := map[int64]int64{}
	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		counts[status.AsInt64()] += dp.Value
	}
	assert.Equal(t, int64(2), counts[http.StatusOK])
	assert.Equal(t, int64(1), counts[http.StatusBadRequest], "status is recorded after the error is handled")

	duration, ok := byName["newsletter.http.request_duration_seconds"]
	require.True(t, ok, "duration histogram not found")
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	total := uint64(0)
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	assert.Equal(t, uint64(3), total)

	_, ok = byName["newsletter.http.response_size_bytes"]
	assert.True(t, ok, "response size histogram not found")
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "/"},
		{"/health_check", "/health_check"},
		{"/subscriptions", "/subscriptions"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizePath(tt.input))
	}
}
