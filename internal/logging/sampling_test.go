package logging

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/newsletter/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampledLogger(enabled bool) (*zap.Logger, *observer.ObservedLogs) {
	core, observed := observer.New(TraceLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: enabled,
		Tick:    config.Duration(time.Minute),
		Levels:  DefaultLevelSamplingConfig(),
	})
	return zap.New(sampled), observed
}

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{Enabled: false}))
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	logger, observed := sampledLogger(true)
	for i := 0; i < 500; i++ {
		logger.Error("error message")
	}
	assert.Equal(t, 500, observed.FilterMessage("error message").Len())
}

func TestNewSampledCore_InfoSampled(t *testing.T) {
	logger, observed := sampledLogger(true)
	for i := 0; i < 300; i++ {
		logger.Info("info message")
	}
	// first 100, then every 10th of the remaining 200
	assert.Equal(t, 120, observed.FilterMessage("info message").Len())
}

func TestNewSampledCore_DebugCapped(t *testing.T) {
	logger, observed := sampledLogger(true)
	for i := 0; i < 50; i++ {
		logger.Debug("debug message")
	}
	assert.Equal(t, 10, observed.FilterMessage("debug message").Len())
}
