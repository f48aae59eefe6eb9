package tracing

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a zap level; TraceLevel extends it below Debug.
type Level = zapcore.Level

// TraceLevel is more verbose than zap's DebugLevel.
const TraceLevel = zapcore.DebugLevel - 1

// DefaultTarget is used when no target is given.
const DefaultTarget = "newsletter"

// Kind tells filters whether metadata describes a span or an event.
type Kind uint8

const (
	KindSpan Kind = iota
	KindEvent
)

func (k Kind) String() string {
	if k == KindEvent {
		return "event"
	}
	return "span"
}

// Metadata is the static description filters decide on.
type Metadata struct {
	Name   string
	Target string
	Level  zapcore.Level
	Kind   Kind
}

// Event is a single log record. Span is nil for context-less events, such
// as those arriving through the log bridge.
type Event struct {
	Time    time.Time
	Level   zapcore.Level
	Target  string
	Message string
	Span    *Span
	Fields  []zap.Field

	// Flattened is filled by the storage layer: the event's fields followed
	// by every ancestor span's fields, closest definition winning.
	Flattened []zap.Field
}

// Metadata returns the event's metadata.
func (e *Event) Metadata() Metadata {
	return Metadata{Name: e.Message, Target: e.Target, Level: e.Level, Kind: KindEvent}
}

// AllFields returns Flattened when a storage layer ran, otherwise the
// event's own fields.
func (e *Event) AllFields() []zap.Field {
	if e.Flattened != nil {
		return e.Flattened
	}
	return e.Fields
}
