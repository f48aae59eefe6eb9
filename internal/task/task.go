package task

import "context"

// Step is the outcome of one Resume call.
type Step struct {
	done bool
	err  error
	wait <-chan struct{}
}

// Done reports completion with err.
func Done(err error) Step {
	return Step{done: true, err: err}
}

// Pending parks the task until wait is closed or receives. A nil wait yields
// and asks to be resumed as soon as a worker is free.
func Pending(wait <-chan struct{}) Step {
	return Step{wait: wait}
}

// IsDone reports whether the task completed.
func (s Step) IsDone() bool { return s.done }

// Err is the completion error of a done step.
func (s Step) Err() error { return s.err }

// Wait is the channel a pending step is parked on.
func (s Step) Wait() <-chan struct{} { return s.wait }

// Task is a resumable unit of work. Resume must not block; work that blocks
// belongs in Offload.
type Task interface {
	Resume(ctx context.Context) Step
}

// Func adapts a function to Task.
type Func func(ctx context.Context) Step

// Resume implements Task.
func (f Func) Resume(ctx context.Context) Step { return f(ctx) }

// Canceler is implemented by tasks that hold resources until they complete.
// Cancel is called at most once, instead of any further Resume.
type Canceler interface {
	Cancel()
}

// Cancel cancels t if it implements Canceler.
func Cancel(t Task) {
	if c, ok := t.(Canceler); ok {
		c.Cancel()
	}
}
