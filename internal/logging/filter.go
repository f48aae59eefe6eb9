package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"go.uber.org/zap/zapcore"
)

// FilterEnvVar overrides the default filter directives.
const FilterEnvVar = "NEWSLETTER_LOG"

// EnvFilter is the pipeline's filter layer. Directives are comma separated:
// a bare level sets the default, target=level overrides it for a target and
// its dotted sub-targets. The longest matching target wins.
//
//	info,newsletter.storage=debug,gorm=warn
type EnvFilter struct {
	directives string
	def        zapcore.Level
	targets    []targetLevel
}

type targetLevel struct {
	target string
	level  zapcore.Level
}

// NewEnvFilter uses NEWSLETTER_LOG when it is set and valid, otherwise
// defaultDirectives. Invalid defaults are an error.
func NewEnvFilter(defaultDirectives string) (*EnvFilter, error) {
	if raw := strings.TrimSpace(os.Getenv(FilterEnvVar)); raw != "" {
		if f, err := ParseFilter(raw); err == nil {
			return f, nil
		}
	}
	return ParseFilter(defaultDirectives)
}

// ParseFilter parses filter directives.
func ParseFilter(directives string) (*EnvFilter, error) {
	f := &EnvFilter{directives: directives, def: zapcore.ErrorLevel}
	for _, part := range strings.Split(directives, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		target, levelText, scoped := strings.Cut(part, "=")
		if !scoped {
			lvl, err := LevelFromString(part)
			if err != nil {
				return nil, fmt.Errorf("invalid filter directive %q: %w", part, err)
			}
			f.def = lvl
			continue
		}
		target = strings.TrimSpace(target)
		if target == "" {
			return nil, fmt.Errorf("invalid filter directive %q: empty target", part)
		}
		lvl, err := LevelFromString(levelText)
		if err != nil {
			return nil, fmt.Errorf("invalid filter directive %q: %w", part, err)
		}
		f.targets = append(f.targets, targetLevel{target: target, level: lvl})
	}
	sort.SliceStable(f.targets, func(i, j int) bool {
		return len(f.targets[i].target) > len(f.targets[j].target)
	})
	return f, nil
}

// Name implements tracing.Layer.
func (f *EnvFilter) Name() string { return "env-filter" }

// String returns the directives the filter was built from.
func (f *EnvFilter) String() string { return f.directives }

// Enabled implements tracing.Filter.
func (f *EnvFilter) Enabled(meta tracing.Metadata) bool {
	return meta.Level >= f.LevelFor(meta.Target)
}

// LevelFor returns the minimum level for target.
func (f *EnvFilter) LevelFor(target string) zapcore.Level {
	for _, t := range f.targets {
		if target == t.target || strings.HasPrefix(target, t.target+".") {
			return t.level
		}
	}
	return f.def
}
