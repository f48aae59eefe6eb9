// internal/logging/levels.go
package logging

import (
	"strings"

	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug for ultra-verbose logging.
// Value: -2 (Debug is -1, Info is 0)
const TraceLevel = tracing.TraceLevel

// LevelFromString parses a level name case-insensitively, supporting "trace".
func LevelFromString(level string) (zapcore.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// levelName renders TraceLevel as "trace" and defers to zap otherwise.
func levelName(l zapcore.Level) string {
	if l == TraceLevel {
		return "trace"
	}
	return l.String()
}

// bunyanLevel maps zap levels onto bunyan's numeric scale.
func bunyanLevel(l zapcore.Level) int {
	switch {
	case l <= TraceLevel:
		return 10
	case l == zapcore.DebugLevel:
		return 20
	case l == zapcore.InfoLevel:
		return 30
	case l == zapcore.WarnLevel:
		return 40
	case l == zapcore.ErrorLevel:
		return 50
	default:
		return 60
	}
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(levelName(l))
}

func encodeBunyanLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendInt(bunyanLevel(l))
}
