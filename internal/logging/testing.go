// internal/logging/testing.go
package logging

import (
	"reflect"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestSink is a FormatLayer writing to an in-memory observer core.
type TestSink struct {
	*FormatLayer
	observed *observer.ObservedLogs
}

// NewTestSink creates a format layer for tests with full observation.
func NewTestSink() *TestSink {
	core, observed := observer.New(TraceLevel)
	return &TestSink{
		FormatLayer: NewFormatLayerWithCore(core),
		observed:    observed,
	}
}

// All returns all logged entries.
func (t *TestSink) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns entries matching message substring.
func (t *TestSink) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessageSnippet(msg)
}

// Reset clears all logged entries.
func (t *TestSink) Reset() {
	t.observed.TakeAll()
}

// AssertLogged verifies a record at level containing message was written.
func (t *TestSink) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			return
		}
	}
	tb.Errorf("expected log at %v containing %q, logs: %+v", level, msgContains, t.observed.All())
}

// AssertNotLogged verifies no record at level containing message was written.
func (t *TestSink) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			tb.Errorf("unexpected log at %v containing %q", level, msgContains)
		}
	}
}

// AssertField verifies a record whose message contains msg carries key=expected.
func (t *TestSink) AssertField(tb testing.TB, msg, key string, expected interface{}) {
	tb.Helper()
	for _, entry := range t.observed.FilterMessageSnippet(msg).All() {
		if got, ok := entry.ContextMap()[key]; ok && reflect.DeepEqual(got, expected) {
			return
		}
	}
	tb.Errorf("field %q=%v not found in message %q", key, expected, msg)
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+\S+`),
	regexp.MustCompile(`(?i)postgres(?:ql)?://[^:/\s]+:[^@\s]+@`),
}

// AssertNoSecret verifies secret appears in no message or string field,
// and that no credential-looking value was logged.
func (t *TestSink) AssertNoSecret(tb testing.TB, secret string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		texts := []string{entry.Message}
		for _, field := range entry.Context {
			if field.Type == zapcore.StringType {
				texts = append(texts, field.String)
			}
		}
		for _, text := range texts {
			if secret != "" && strings.Contains(text, secret) {
				tb.Errorf("secret leaked in %q", text)
			}
			for _, re := range secretPatterns {
				if re.MatchString(text) {
					tb.Errorf("sensitive pattern in %q", text)
				}
			}
		}
	}
}
