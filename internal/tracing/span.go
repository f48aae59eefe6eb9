package tracing

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ID identifies a span within a process. Zero means "no span".
type ID uint64

// Span is a handle to one unit of correlated work. Methods are safe for
// concurrent use. A span that did not pass the filters is inert: entering it
// leaves the current span unchanged and closing it emits nothing.
type Span struct {
	id       ID
	parent   ID
	meta     Metadata
	enabled  bool
	dispatch *Dispatch
	start    time.Time

	closed atomic.Bool

	mu     sync.Mutex
	fields []zap.Field
	end    time.Time
	ext    map[any]any
}

// ID returns the span's ID, zero for an inert span.
func (s *Span) ID() ID { return s.id }

// ParentID returns the ID the span was opened under.
func (s *Span) ParentID() ID { return s.parent }

// Metadata returns the span's static description.
func (s *Span) Metadata() Metadata { return s.meta }

// Name returns the span name.
func (s *Span) Name() string { return s.meta.Name }

// Enabled reports whether the span passed the pipeline filters.
func (s *Span) Enabled() bool { return s.enabled }

// IsClosed reports whether Close has been called.
func (s *Span) IsClosed() bool { return s.closed.Load() }

// Start returns when the span was opened.
func (s *Span) Start() time.Time { return s.start }

// Elapsed is the span duration so far, or its final duration once closed.
func (s *Span) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.end.IsZero() {
		return s.dispatch.now().Sub(s.start)
	}
	return s.end.Sub(s.start)
}

// Fields returns a copy of the span's own fields.
func (s *Span) Fields() []zap.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]zap.Field(nil), s.fields...)
}

// Parent resolves the parent span. It returns nil when there is none or
// the parent has already closed.
func (s *Span) Parent() *Span {
	if s.parent == 0 {
		return nil
	}
	return s.dispatch.lookup(s.parent)
}

// Extension returns a value a layer stored on this span.
func (s *Span) Extension(key any) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.ext[key]
	return v, ok
}

// SetExtension stores per-span layer data. Keys should be unexported types
// owned by the layer.
func (s *Span) SetExtension(key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ext == nil {
		s.ext = make(map[any]any)
	}
	s.ext[key] = value
}

// Enter makes the span current on u until the returned guard exits.
// Entering a closed span panics with a *ContextError wrapping ErrUseAfterClose.
// A nil unit notifies layers without changing any activation stack.
func (s *Span) Enter(u *Unit) *Guard {
	if s.closed.Load() {
		panic(&ContextError{Span: s.meta.Name, ID: s.id, Err: ErrUseAfterClose})
	}
	if !s.enabled {
		return &Guard{}
	}
	if u != nil {
		u.push(s)
	}
	for _, h := range s.dispatch.pipeline.enter {
		h.OnEnter(s)
	}
	return &Guard{span: s, unit: u}
}

// InScope runs fn with the span entered on u.
func (s *Span) InScope(u *Unit, fn func()) {
	g := s.Enter(u)
	defer g.Exit()
	fn()
}

// Record sets fields on the span. A key already present is overwritten.
func (s *Span) Record(fields ...zap.Field) {
	if !s.enabled || s.closed.Load() || len(fields) == 0 {
		return
	}
	s.mu.Lock()
	s.fields = mergeFields(s.fields, fields)
	s.mu.Unlock()
	for _, h := range s.dispatch.pipeline.record {
		h.OnRecord(s, fields)
	}
}

// Event emits an event attributed to this span regardless of which span is
// current. Events on an inert span go to its nearest open ancestor.
func (s *Span) Event(level Level, msg string, fields ...zap.Field) {
	target := s.meta.Target
	owner := s
	if !s.enabled {
		owner = s.Parent()
	}
	s.dispatch.emit(owner, level, target, msg, fields)
}

// Close ends the span. Only the first call has an effect.
func (s *Span) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if !s.enabled {
		return
	}
	s.mu.Lock()
	s.end = s.dispatch.now()
	s.mu.Unlock()
	for _, h := range s.dispatch.pipeline.close {
		h.OnClose(s)
	}
	s.dispatch.remove(s.id)
}

// Guard marks one activation of a span. Exit is idempotent.
type Guard struct {
	span   *Span
	unit   *Unit
	exited bool
}

// Exit makes the span stop being current on its unit.
func (g *Guard) Exit() {
	if g == nil || g.exited || g.span == nil {
		return
	}
	g.exited = true
	if g.unit != nil {
		g.unit.pop(g.span)
	}
	for _, h := range g.span.dispatch.pipeline.exit {
		h.OnExit(g.span)
	}
}

// mergeFields overwrites fields in base with same-key fields from update
// and appends the rest, keeping first-seen order.
func mergeFields(base, update []zap.Field) []zap.Field {
	out := append([]zap.Field(nil), base...)
	for _, f := range update {
		replaced := false
		for i := range out {
			if out[i].Key == f.Key {
				out[i] = f
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, f)
		}
	}
	return out
}
