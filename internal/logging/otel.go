// internal/logging/otel.go
package logging

import (
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newEncoder returns the base encoder for format.
func newEncoder(format string) zapcore.Encoder {
	switch format {
	case FormatConsole:
		cfg := zapcore.EncoderConfig{
			TimeKey:          "ts",
			LevelKey:         "level",
			NameKey:          "target",
			MessageKey:       "msg",
			StacktraceKey:    "stacktrace",
			LineEnding:       zapcore.DefaultLineEnding,
			EncodeLevel:      encodeLevel,
			EncodeTime:       zapcore.ISO8601TimeEncoder,
			EncodeDuration:   zapcore.StringDurationEncoder,
			EncodeName:       zapcore.FullNameEncoder,
			ConsoleSeparator: " ",
		}
		return zapcore.NewConsoleEncoder(cfg)
	case FormatJSON:
		return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "target",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encodeLevel,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		})
	default:
		return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			MessageKey:     "msg",
			LevelKey:       "level",
			TimeKey:        "time",
			NameKey:        "target",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encodeBunyanLevel,
			EncodeTime:     zapcore.TimeEncoderOfLayout(time.RFC3339Nano),
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		})
	}
}

// newDualCore creates core with stdout and/or OTEL outputs.
func newDualCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	cores := make([]zapcore.Core, 0, 2)

	if cfg.Output.Stdout {
		encoder, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return nil, fmt.Errorf("failed to create redacting encoder: %w", err)
		}
		core := zapcore.NewCore(encoder, zapcore.AddSync(cfg.writer()), cfg.Level)
		cores = append(cores, core.With(staticFields(cfg)))
	}

	if cfg.Output.OTEL && otelProvider != nil {
		cores = append(cores, otelzap.NewCore(cfg.Name, otelzap.WithLoggerProvider(otelProvider)))
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("at least one output must be enabled and available")
	}

	var core zapcore.Core
	if len(cores) == 1 {
		core = cores[0]
	} else {
		core = zapcore.NewTee(cores...)
	}

	return newSampledCore(core, cfg.Sampling), nil
}

// staticFields are stamped on every stdout record.
func staticFields(cfg *Config) []zapcore.Field {
	var fields []zapcore.Field
	if cfg.Format == FormatBunyan {
		hostname, _ := os.Hostname()
		fields = append(fields,
			zap.Int("v", 0),
			zap.String("name", cfg.Name),
			zap.String("hostname", hostname),
			zap.Int("pid", os.Getpid()),
		)
	}
	for k, v := range cfg.Fields {
		fields = append(fields, zap.String(k, v))
	}
	return fields
}
