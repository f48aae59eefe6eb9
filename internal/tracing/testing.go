package tracing

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Notification kinds captured by Recorder.
const (
	RecordNew    = "new"
	RecordEnter  = "enter"
	RecordExit   = "exit"
	RecordFields = "record"
	RecordEvent  = "event"
	RecordClose  = "close"
)

// Recorded is one notification seen by a Recorder.
type Recorded struct {
	Kind     string
	SpanID   ID
	ParentID ID
	SpanName string
	Level    zapcore.Level
	Message  string
	Fields   []zap.Field
}

// FieldMap returns the recorded fields keyed by name, encoded through zap.
func (r Recorded) FieldMap() map[string]any {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range r.Fields {
		f.AddTo(enc)
	}
	return enc.Fields
}

// Recorder is a pipeline layer for tests that captures every notification.
type Recorder struct {
	mu      sync.Mutex
	records []Recorded
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// NewTestDispatch returns a dispatch that records everything it sees into
// a Recorder, with the storage layer in front so events carry flattened fields.
func NewTestDispatch() (*Dispatch, *Recorder) {
	rec := NewRecorder()
	p, err := NewPipeline(NewStorageLayer(), rec)
	if err != nil {
		panic(err)
	}
	return NewDispatch(p), rec
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) add(rec Recorded) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

func spanRecord(kind string, s *Span) Recorded {
	return Recorded{Kind: kind, SpanID: s.ID(), ParentID: s.ParentID(), SpanName: s.Name(), Level: s.Metadata().Level}
}

func (r *Recorder) OnNewSpan(s *Span) {
	rec := spanRecord(RecordNew, s)
	rec.Fields = s.Fields()
	r.add(rec)
}

func (r *Recorder) OnRecord(s *Span, fields []zap.Field) {
	rec := spanRecord(RecordFields, s)
	rec.Fields = fields
	r.add(rec)
}

func (r *Recorder) OnEnter(s *Span) { r.add(spanRecord(RecordEnter, s)) }
func (r *Recorder) OnExit(s *Span)  { r.add(spanRecord(RecordExit, s)) }
func (r *Recorder) OnClose(s *Span) { r.add(spanRecord(RecordClose, s)) }

func (r *Recorder) OnEvent(ev *Event) {
	rec := Recorded{Kind: RecordEvent, Level: ev.Level, Message: ev.Message, Fields: ev.AllFields()}
	if ev.Span != nil {
		rec.SpanID = ev.Span.ID()
		rec.ParentID = ev.Span.ParentID()
		rec.SpanName = ev.Span.Name()
	}
	r.add(rec)
}

// All returns a copy of everything recorded.
func (r *Recorder) All() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.records...)
}

// Kind returns the records of one kind.
func (r *Recorder) Kind(kind string) []Recorded {
	var out []Recorded
	for _, rec := range r.All() {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

// Events returns recorded events.
func (r *Recorder) Events() []Recorded { return r.Kind(RecordEvent) }

// EventsFor returns events attributed to span id.
func (r *Recorder) EventsFor(id ID) []Recorded {
	var out []Recorded
	for _, rec := range r.Events() {
		if rec.SpanID == id {
			out = append(out, rec)
		}
	}
	return out
}

// Closes returns close notifications for span id.
func (r *Recorder) Closes(id ID) int {
	n := 0
	for _, rec := range r.Kind(RecordClose) {
		if rec.SpanID == id {
			n++
		}
	}
	return n
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}
