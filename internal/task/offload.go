package task

import (
	"context"

	"github.com/fyrsmithlabs/newsletter/internal/tracing"
)

type offloaded struct {
	fn      func(ctx context.Context) error
	started bool
	done    chan struct{}
	cancel  context.CancelFunc
	err     error
}

// Offload runs fn on its own goroutine the first time the task is resumed.
// The goroutine gets a fresh unit with the span that was current at that
// moment entered on it, so events emitted by fn stay attributed to the
// calling operation. The task stays pending until fn returns. fn must
// return once its context is cancelled.
func Offload(fn func(ctx context.Context) error) Task {
	return &offloaded{fn: fn, done: make(chan struct{})}
}

// Resume implements Task.
func (o *offloaded) Resume(ctx context.Context) Step {
	if !o.started {
		o.started = true
		o.start(ctx)
		return Pending(o.done)
	}
	select {
	case <-o.done:
		return Done(o.err)
	default:
		return Pending(o.done)
	}
}

func (o *offloaded) start(ctx context.Context) {
	unit := tracing.NewUnit()
	var g *tracing.Guard
	if span := tracing.CurrentSpan(ctx); span != nil {
		g = span.Enter(unit)
	}
	ctx, o.cancel = context.WithCancel(tracing.ContextWithUnit(ctx, unit))
	go func() {
		defer close(o.done)
		defer g.Exit()
		o.err = o.fn(ctx)
	}()
}

// Cancel implements Canceler. It cancels the context passed to fn and
// waits for fn to return, so the span fn runs under has been exited by the
// time Cancel returns.
func (o *offloaded) Cancel() {
	if o.cancel == nil {
		return
	}
	o.cancel()
	<-o.done
}
