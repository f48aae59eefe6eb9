package app

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lognoop "go.opentelemetry.io/otel/log/noop"
	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/newsletter/internal/config"
	"github.com/fyrsmithlabs/newsletter/internal/telemetry"
	"github.com/fyrsmithlabs/newsletter/internal/tracing"
)

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	s, err := config.LoadFromDir("../../configuration", config.Local)
	require.NoError(t, err)
	return s
}

func TestModuleGraphIsComplete(t *testing.T) {
	err := fx.ValidateApp(Module(testSettings(t), config.Local))
	require.NoError(t, err)
}

func TestMigrateGraphIsComplete(t *testing.T) {
	err := fx.ValidateApp(Observability(testSettings(t), config.Local), Migrate())
	require.NoError(t, err)
}

func TestNewPipeline(t *testing.T) {
	s := testSettings(t)
	tel, err := telemetry.New(t.Context(), telemetry.NewDefaultConfig())
	require.NoError(t, err)

	t.Run("without registry", func(t *testing.T) {
		p, err := NewPipeline(s, tel, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"env-filter", "storage", "format"}, p.Layers())
	})

	t.Run("with registry", func(t *testing.T) {
		p, err := NewPipeline(s, tel, prometheus.NewRegistry())
		require.NoError(t, err)
		assert.Equal(t, []string{"env-filter", "storage", "format", "metrics"}, p.Layers())
	})

	t.Run("with otel log bridge", func(t *testing.T) {
		bridged, err := telemetry.New(t.Context(), telemetry.NewDefaultConfig())
		require.NoError(t, err)
		bridged.SetLoggerProvider(lognoop.NewLoggerProvider())
		p, err := NewPipeline(s, bridged, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"env-filter", "storage", "format"}, p.Layers())
	})

	t.Run("invalid format", func(t *testing.T) {
		bad := *s
		bad.Logging.Format = "xml"
		_, err := NewPipeline(&bad, tel, nil)
		assert.Error(t, err)
	})
}

func TestProvideRegistry(t *testing.T) {
	reg, err := provideRegistry()
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewPipelineInstallsOnTestDispatch(t *testing.T) {
	s := testSettings(t)
	tel, err := telemetry.New(t.Context(), telemetry.NewDefaultConfig())
	require.NoError(t, err)

	p, err := NewPipeline(s, tel, nil)
	require.NoError(t, err)

	d := tracing.NewDispatch(p)
	span := d.NewSpan(nil, tracing.Metadata{Name: "startup", Target: Name, Level: zapcore.InfoLevel, Kind: tracing.KindSpan})
	span.Close()
	assert.Zero(t, d.OpenSpans())
}
