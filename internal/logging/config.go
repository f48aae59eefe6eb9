// internal/logging/config.go
package logging

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/fyrsmithlabs/newsletter/internal/config"
	"go.uber.org/zap/zapcore"
)

// Formats accepted by Config.Format.
const (
	FormatBunyan  = "bunyan"
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config holds logging configuration.
type Config struct {
	// Name is the application name stamped on every bunyan record.
	Name      string            `koanf:"name"`
	Level     zapcore.Level     `koanf:"level"`
	Format    string            `koanf:"format"`
	Output    OutputConfig      `koanf:"output"`
	Sampling  SamplingConfig    `koanf:"sampling"`
	Fields    map[string]string `koanf:"fields"`
	Redaction RedactionConfig   `koanf:"redaction"`

	// Writer replaces stdout as the sink. Tests set it to a buffer.
	Writer io.Writer `koanf:"-"`
}

// OutputConfig controls where logs are written.
type OutputConfig struct {
	Stdout bool `koanf:"stdout"`
	OTEL   bool `koanf:"otel"`
}

// SamplingConfig controls log volume reduction.
type SamplingConfig struct {
	Enabled bool                                  `koanf:"enabled"`
	Tick    config.Duration                       `koanf:"tick"`
	Levels  map[zapcore.Level]LevelSamplingConfig `koanf:"levels"`
}

// LevelSamplingConfig defines sampling rate per level.
type LevelSamplingConfig struct {
	Initial    int `koanf:"initial"`
	Thereafter int `koanf:"thereafter"`
}

// RedactionConfig controls sensitive data redaction.
type RedactionConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Fields   []string `koanf:"fields"`
	Patterns []string `koanf:"patterns"`
}

// NewDefaultConfig returns config with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Name:   "newsletter",
		Level:  TraceLevel,
		Format: FormatBunyan,
		Output: OutputConfig{
			Stdout: true,
			OTEL:   false,
		},
		Sampling: SamplingConfig{
			Enabled: false,
			Tick:    config.Duration(time.Second),
			Levels:  DefaultLevelSamplingConfig(),
		},
		Redaction: RedactionConfig{
			Enabled: true,
			Fields: []string{
				"password", "secret", "token", "api_key", "authorization",
				"credential", "connection_string", "dsn",
			},
			Patterns: []string{
				`(?i)bearer\s+\S+`,
				`(?i)postgres(?:ql)?://[^:/\s]+:[^@\s]+@`,
			},
		},
	}
}

// ConfigFromSettings derives the formatting config from loaded settings.
// Level filtering is the EnvFilter's job, so the sink accepts everything.
func ConfigFromSettings(s config.LoggingSettings, name string) *Config {
	cfg := NewDefaultConfig()
	if name != "" {
		cfg.Name = name
	}
	cfg.Format = s.Format
	cfg.Redaction.Enabled = s.Redaction
	cfg.Sampling.Enabled = s.Sampling
	return cfg
}

// DefaultLevelSamplingConfig returns default sampling config by level.
func DefaultLevelSamplingConfig() map[zapcore.Level]LevelSamplingConfig {
	return map[zapcore.Level]LevelSamplingConfig{
		TraceLevel:         {Initial: 1, Thereafter: 0},
		zapcore.DebugLevel: {Initial: 10, Thereafter: 0},
		zapcore.InfoLevel:  {Initial: 100, Thereafter: 10},
		zapcore.WarnLevel:  {Initial: 100, Thereafter: 100},
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatBunyan, FormatJSON, FormatConsole:
	default:
		return fmt.Errorf("format must be %q, %q or %q, got %q", FormatBunyan, FormatJSON, FormatConsole, c.Format)
	}
	if !c.Output.Stdout && !c.Output.OTEL {
		return fmt.Errorf("at least one output must be enabled (stdout or otel)")
	}
	if c.Sampling.Enabled && c.Sampling.Tick.Duration() <= 0 {
		return fmt.Errorf("sampling tick must be > 0 when sampling enabled")
	}
	if c.Redaction.Enabled {
		for _, pattern := range c.Redaction.Patterns {
			if len(pattern) > 200 {
				return fmt.Errorf("redaction pattern too long (max 200 chars): %q", pattern)
			}
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("invalid redaction pattern %q: %w", pattern, err)
			}
		}
	}
	for k, v := range c.Fields {
		if k == "" {
			return fmt.Errorf("field key cannot be empty")
		}
		if v == "" {
			return fmt.Errorf("field %q has empty value", k)
		}
	}
	return nil
}

func (c *Config) writer() io.Writer {
	if c.Writer != nil {
		return c.Writer
	}
	return os.Stdout
}
