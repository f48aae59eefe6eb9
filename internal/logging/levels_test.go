package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	tests := map[string]zapcore.Level{
		"trace": TraceLevel,
		"TRACE": TraceLevel,
		"debug": zapcore.DebugLevel,
		"Info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := LevelFromString(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := LevelFromString("loud")
	assert.Error(t, err)
}

func TestBunyanLevel(t *testing.T) {
	assert.Equal(t, 10, bunyanLevel(TraceLevel))
	assert.Equal(t, 20, bunyanLevel(zapcore.DebugLevel))
	assert.Equal(t, 30, bunyanLevel(zapcore.InfoLevel))
	assert.Equal(t, 40, bunyanLevel(zapcore.WarnLevel))
	assert.Equal(t, 50, bunyanLevel(zapcore.ErrorLevel))
	assert.Equal(t, 60, bunyanLevel(zapcore.FatalLevel))
	assert.Equal(t, "trace", levelName(TraceLevel))
}
