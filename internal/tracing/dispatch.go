package tracing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Dispatch routes span and event notifications through a pipeline and owns
// the registry of open spans.
type Dispatch struct {
	pipeline *Pipeline
	nextID   atomic.Uint64
	now      func() time.Time

	mu    sync.RWMutex
	spans map[ID]*Span
}

// NewDispatch returns a dispatch for p. A nil pipeline records nothing.
func NewDispatch(p *Pipeline) *Dispatch {
	if p == nil {
		p = &Pipeline{}
	}
	return &Dispatch{
		pipeline: p,
		now:      time.Now,
		spans:    make(map[ID]*Span),
	}
}

// Pipeline returns the dispatch's pipeline.
func (d *Dispatch) Pipeline() *Pipeline { return d.pipeline }

// Sync flushes the pipeline.
func (d *Dispatch) Sync() error { return d.pipeline.Sync() }

// Enabled reports whether metadata would pass the filters. A dispatch
// without layers enables nothing.
func (d *Dispatch) Enabled(meta Metadata) bool {
	if len(d.pipeline.layers) == 0 {
		return false
	}
	return d.pipeline.enabled(meta)
}

// OpenSpans returns the number of spans registered and not yet closed.
func (d *Dispatch) OpenSpans() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.spans)
}

// NewSpan opens a span under parent (nil for a root span).
func (d *Dispatch) NewSpan(parent *Span, meta Metadata, fields ...zap.Field) *Span {
	meta.Kind = KindSpan
	if meta.Target == "" {
		meta.Target = DefaultTarget
	}
	s := &Span{
		meta:     meta,
		dispatch: d,
		start:    d.now(),
		fields:   mergeFields(nil, fields),
	}
	if parent != nil {
		s.parent = parent.id
		if !parent.enabled {
			s.parent = parent.parent
		}
	}
	if !d.Enabled(meta) {
		return s
	}
	s.enabled = true
	s.id = ID(d.nextID.Add(1))

	d.mu.Lock()
	d.spans[s.id] = s
	d.mu.Unlock()

	for _, h := range d.pipeline.newSpan {
		h.OnNewSpan(s)
	}
	return s
}

func (d *Dispatch) lookup(id ID) *Span {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spans[id]
}

func (d *Dispatch) remove(id ID) {
	d.mu.Lock()
	delete(d.spans, id)
	d.mu.Unlock()
}

func (d *Dispatch) emit(span *Span, level Level, target, msg string, fields []zap.Field) {
	if target == "" {
		target = DefaultTarget
	}
	meta := Metadata{Name: msg, Target: target, Level: level, Kind: KindEvent}
	if !d.Enabled(meta) {
		return
	}
	ev := &Event{
		Time:    d.now(),
		Level:   level,
		Target:  target,
		Message: msg,
		Span:    span,
		Fields:  fields,
	}
	for _, h := range d.pipeline.event {
		h.OnEvent(ev)
	}
}

// Emit sends a context-less event.
func (d *Dispatch) Emit(level Level, target, msg string, fields ...zap.Field) {
	d.emit(nil, level, target, msg, fields)
}

type dispatchKey struct{}

// ContextWithDispatch scopes d to ctx, overriding the global dispatch.
func ContextWithDispatch(ctx context.Context, d *Dispatch) context.Context {
	return context.WithValue(ctx, dispatchKey{}, d)
}

// FromContext returns the dispatch scoped to ctx, or the global one.
func FromContext(ctx context.Context) *Dispatch {
	if ctx != nil {
		if d, ok := ctx.Value(dispatchKey{}).(*Dispatch); ok && d != nil {
			return d
		}
	}
	return Global()
}
