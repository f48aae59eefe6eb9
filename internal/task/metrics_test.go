package task

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	e := newExecutor(t, 1)
	e.SetMetrics(m)

	_ = e.Run(context.Background(), Func(func(context.Context) Step { return Done(nil) }))
	_ = e.Run(context.Background(), Func(func(context.Context) Step { return Done(errors.New("x")) }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = e.Run(ctx, &cancelSpy{wait: make(chan struct{})})

	assert.InDelta(t, 3, testutil.ToFloat64(m.Spawned), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Completed.WithLabelValues("ok")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Completed.WithLabelValues("error")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Completed.WithLabelValues("cancelled")), 0.001)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Parked), 0.001)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
