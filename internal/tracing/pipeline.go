package tracing

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Layer is one stage of a Pipeline. A layer takes part in whichever hooks
// it implements: Filter, NewSpanHook, RecordHook, EnterHook, ExitHook,
// EventHook, CloseHook.
type Layer interface {
	Name() string
}

// Filter decides whether a span or event with the given metadata is
// recorded. It is consulted before any other layer sees the span or event.
type Filter interface {
	Layer
	Enabled(meta Metadata) bool
}

// NewSpanHook is notified when an enabled span is opened.
type NewSpanHook interface {
	OnNewSpan(span *Span)
}

// RecordHook is notified when fields are recorded on an open span.
type RecordHook interface {
	OnRecord(span *Span, fields []zap.Field)
}

// EnterHook is notified when a span becomes current on a unit.
type EnterHook interface {
	OnEnter(span *Span)
}

// ExitHook is notified when a span stops being current on a unit.
type ExitHook interface {
	OnExit(span *Span)
}

// EventHook receives every event that passed the filters.
type EventHook interface {
	OnEvent(ev *Event)
}

// CloseHook is notified exactly once per enabled span.
type CloseHook interface {
	OnClose(span *Span)
}

// Syncer is implemented by layers that buffer output.
type Syncer interface {
	Sync() error
}

// Pipeline is an ordered, immutable list of layers with hooks resolved
// once at construction.
type Pipeline struct {
	layers  []Layer
	filters []Filter
	newSpan []NewSpanHook
	record  []RecordHook
	enter   []EnterHook
	exit    []ExitHook
	event   []EventHook
	close   []CloseHook
	syncers []Syncer
}

// NewPipeline builds a pipeline. Filter layers must come first.
func NewPipeline(layers ...Layer) (*Pipeline, error) {
	if len(layers) == 0 {
		return nil, ErrEmptyPipeline
	}

	p := &Pipeline{layers: append([]Layer(nil), layers...)}
	sawNonFilter := false
	for i, l := range layers {
		if l == nil {
			return nil, fmt.Errorf("tracing: layer %d is nil", i)
		}
		if f, ok := l.(Filter); ok {
			if sawNonFilter {
				return nil, fmt.Errorf("%w: %q at position %d", ErrFilterOrder, l.Name(), i)
			}
			p.filters = append(p.filters, f)
		} else {
			sawNonFilter = true
		}
		if h, ok := l.(NewSpanHook); ok {
			p.newSpan = append(p.newSpan, h)
		}
		if h, ok := l.(RecordHook); ok {
			p.record = append(p.record, h)
		}
		if h, ok := l.(EnterHook); ok {
			p.enter = append(p.enter, h)
		}
		if h, ok := l.(ExitHook); ok {
			p.exit = append(p.exit, h)
		}
		if h, ok := l.(EventHook); ok {
			p.event = append(p.event, h)
		}
		if h, ok := l.(CloseHook); ok {
			p.close = append(p.close, h)
		}
		if s, ok := l.(Syncer); ok {
			p.syncers = append(p.syncers, s)
		}
	}
	return p, nil
}

// Layers returns the layer names in order.
func (p *Pipeline) Layers() []string {
	names := make([]string, len(p.layers))
	for i, l := range p.layers {
		names[i] = l.Name()
	}
	return names
}

// Sync flushes every buffering layer.
func (p *Pipeline) Sync() error {
	var errs []error
	for _, s := range p.syncers {
		if err := s.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) enabled(meta Metadata) bool {
	for _, f := range p.filters {
		if !f.Enabled(meta) {
			return false
		}
	}
	return true
}
