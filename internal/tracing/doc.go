// Package tracing correlates structured log events with the spans they
// happen in.
//
// A Span is a named unit of work with fields. Spans form a tree through a
// parent ID that is resolved against the dispatch's registry, so a child
// never keeps its parent alive. Which span is "current" is tracked per
// execution unit (Unit): one Unit belongs to exactly one goroutine, an
// executor worker or a request goroutine, and travels in the context.
//
// Every lifecycle notification (new, enter, exit, record, close) and every
// event is routed through a Pipeline of layers. Filter layers run first and
// decide whether a span or event exists at all; the remaining layers see only
// what passed. The pipeline is immutable once built.
//
//	p, err := tracing.NewPipeline(filter, tracing.NewStorageLayer(), formatter)
//	d, err := tracing.Init(p) // installs the log bridge and the global dispatch
//
//	span := tracing.OpenSpan(ctx, "Adding a new subscriber", tracing.WithFields(zap.String("email", email)))
//	defer span.Close()
//	guard := span.Enter(tracing.UnitFromContext(ctx))
//	defer guard.Exit()
//	tracing.Info(ctx, "validated form")
//
// Never hold a Guard across a point where the goroutine parks a task and
// picks up different work; use task.Instrument for that.
package tracing
