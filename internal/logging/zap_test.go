package logging

import (
	"testing"

	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewZapLogger(t *testing.T) {
	rec := tracing.NewRecorder()
	filter, err := ParseFilter("info,fx=warn")
	require.NoError(t, err)
	p, err := tracing.NewPipeline(filter, tracing.NewStorageLayer(), rec)
	require.NoError(t, err)

	logger := NewZapLogger(tracing.NewDispatch(p)).With(zap.String("component", "boot"))
	logger.Info("started", zap.Int("port", 8000))
	logger.Named("fx").Info("provided")
	logger.Named("fx").Warn("slow start")
	logger.Debug("hidden")

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "started", events[0].Message)
	assert.Equal(t, map[string]any{"component": "boot", "port": int64(8000)}, events[0].FieldMap())
	assert.Equal(t, "slow start", events[1].Message)
	assert.Equal(t, zapcore.WarnLevel, events[1].Level)
	assert.Zero(t, events[1].SpanID)
}
