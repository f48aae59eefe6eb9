package telemetry

import (
	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsLayer records pipeline activity as Prometheus metrics.
type MetricsLayer struct {
	events   *prometheus.CounterVec
	open     prometheus.Gauge
	duration *prometheus.HistogramVec
}

// NewMetricsLayer registers its collectors on reg.
func NewMetricsLayer(reg prometheus.Registerer) (*MetricsLayer, error) {
	l := &MetricsLayer{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsletter",
			Subsystem: "tracing",
			Name:      "events_total",
			Help:      "Events that passed the pipeline filters, by level and target.",
		}, []string{"level", "target"}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "newsletter",
			Subsystem: "tracing",
			Name:      "open_spans",
			Help:      "Spans opened and not yet closed.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsletter",
			Subsystem: "tracing",
			Name:      "span_duration_seconds",
			Help:      "Span lifetime from open to close.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"span"}),
	}
	for _, c := range []prometheus.Collector{l.events, l.open, l.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Name implements tracing.Layer.
func (l *MetricsLayer) Name() string { return "metrics" }

// OnNewSpan implements tracing.NewSpanHook.
func (l *MetricsLayer) OnNewSpan(*tracing.Span) {
	l.open.Inc()
}

// OnClose implements tracing.CloseHook.
func (l *MetricsLayer) OnClose(span *tracing.Span) {
	l.open.Dec()
	l.duration.WithLabelValues(span.Name()).Observe(span.Elapsed().Seconds())
}

// OnEvent implements tracing.EventHook.
func (l *MetricsLayer) OnEvent(ev *tracing.Event) {
	level := ev.Level.String()
	if ev.Level == tracing.TraceLevel {
		level = "trace"
	}
	l.events.WithLabelValues(level, ev.Target).Inc()
}
