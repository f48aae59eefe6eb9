package task

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the executor.
//
//   - newsletter_executor_tasks_spawned_total
//   - newsletter_executor_tasks_completed_total{outcome}
//   - newsletter_executor_tasks_parked
type Metrics struct {
	Spawned   prometheus.Counter
	Completed *prometheus.CounterVec
	Parked    prometheus.Gauge
}

// NewMetrics registers executor metrics on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Spawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsletter",
			Subsystem: "executor",
			Name:      "tasks_spawned_total",
			Help:      "Total number of tasks spawned",
		}),
		Completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsletter",
			Subsystem: "executor",
			Name:      "tasks_completed_total",
			Help:      "Total number of tasks finished, by outcome",
		}, []string{"outcome"}), // "ok", "error", "cancelled", "aborted"
		Parked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "newsletter",
			Subsystem: "executor",
			Name:      "tasks_parked",
			Help:      "Tasks suspended and waiting to be resumed",
		}),
	}
	for _, c := range []prometheus.Collector{m.Spawned, m.Completed, m.Parked} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrExecutorStopped):
		outcome = "aborted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "cancelled"
	default:
		outcome = "error"
	}
	m.Completed.WithLabelValues(outcome).Inc()
}
