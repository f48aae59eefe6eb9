package logging

import (
	"testing"

	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("info, newsletter.storage=debug, newsletter=warn, gorm=error")
	require.NoError(t, err)

	assert.Equal(t, zapcore.InfoLevel, f.LevelFor("other"))
	assert.Equal(t, zapcore.WarnLevel, f.LevelFor("newsletter"))
	assert.Equal(t, zapcore.WarnLevel, f.LevelFor("newsletter.http"))
	assert.Equal(t, zapcore.DebugLevel, f.LevelFor("newsletter.storage"))
	assert.Equal(t, zapcore.DebugLevel, f.LevelFor("newsletter.storage.pool"))
	assert.Equal(t, zapcore.InfoLevel, f.LevelFor("newsletterx"))
	assert.Equal(t, zapcore.ErrorLevel, f.LevelFor("gorm"))

	assert.True(t, f.Enabled(tracing.Metadata{Target: "newsletter.storage", Level: zapcore.DebugLevel}))
	assert.False(t, f.Enabled(tracing.Metadata{Target: "newsletter.http", Level: zapcore.InfoLevel}))
}

func TestParseFilter_NoDefaultMeansError(t *testing.T) {
	f, err := ParseFilter("newsletter=debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.ErrorLevel, f.LevelFor("elsewhere"))
}

func TestParseFilter_Invalid(t *testing.T) {
	for _, in := range []string{"loud", "=info", "newsletter=loud"} {
		_, err := ParseFilter(in)
		assert.Error(t, err, in)
	}
}

func TestNewEnvFilter(t *testing.T) {
	t.Run("default when unset", func(t *testing.T) {
		t.Setenv(FilterEnvVar, "")
		f, err := NewEnvFilter("info")
		require.NoError(t, err)
		assert.Equal(t, "info", f.String())
	})
	t.Run("environment override", func(t *testing.T) {
		t.Setenv(FilterEnvVar, "trace")
		f, err := NewEnvFilter("info")
		require.NoError(t, err)
		assert.Equal(t, TraceLevel, f.LevelFor("anything"))
	})
	t.Run("invalid override falls back", func(t *testing.T) {
		t.Setenv(FilterEnvVar, "deafening")
		f, err := NewEnvFilter("warn")
		require.NoError(t, err)
		assert.Equal(t, zapcore.WarnLevel, f.LevelFor("anything"))
	})
	t.Run("invalid default", func(t *testing.T) {
		t.Setenv(FilterEnvVar, "")
		_, err := NewEnvFilter("deafening")
		assert.Error(t, err)
	})
}
