package task

import (
	"context"
	"sync/atomic"

	"github.com/fyrsmithlabs/newsletter/internal/tracing"
)

type instrumented struct {
	span     *tracing.Span
	inner    Task
	finished atomic.Bool
}

// Instrument attaches span to t. Every Resume enters the span on the unit
// carried by ctx and exits it before returning, whether t completed or
// suspended. The span is closed when t completes or is cancelled, once.
func Instrument(span *tracing.Span, t Task) Task {
	return &instrumented{span: span, inner: t}
}

// Resume implements Task.
func (i *instrumented) Resume(ctx context.Context) Step {
	step := i.resume(ctx)
	if step.IsDone() {
		i.finish()
	}
	return step
}

func (i *instrumented) resume(ctx context.Context) Step {
	g := i.span.Enter(tracing.UnitFromContext(ctx))
	defer g.Exit()
	return i.inner.Resume(ctx)
}

// Cancel implements Canceler.
func (i *instrumented) Cancel() {
	if i.finished.Load() {
		return
	}
	Cancel(i.inner)
	i.finish()
}

func (i *instrumented) finish() {
	if i.finished.CompareAndSwap(false, true) {
		i.span.Close()
	}
}

// Span returns the span attached to an instrumented task, or nil.
func Span(t Task) *tracing.Span {
	if i, ok := t.(*instrumented); ok {
		return i.span
	}
	return nil
}
