package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/newsletter/internal/config"
	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"go.uber.org/zap"
)

// ErrExecutorStopped is returned for tasks spawned on, or still pending in,
// a stopped executor.
var ErrExecutorStopped = errors.New("executor stopped")

// Config sizes an Executor.
type Config struct {
	Workers   int
	QueueSize int
}

// ConfigFromSettings maps loaded settings onto a Config.
func ConfigFromSettings(s config.ExecutorSettings) Config {
	return Config{Workers: s.Workers, QueueSize: s.QueueSize}
}

// Validate checks the sizes.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative, got %d", c.QueueSize)
	}
	return nil
}

// Executor resumes tasks on a fixed set of workers. Each worker owns one
// tracing.Unit; a task sees the unit of whichever worker resumes it.
type Executor struct {
	queue chan *job
	quit  chan struct{}

	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once

	workers sync.WaitGroup
	parked  sync.WaitGroup

	logger  *zap.Logger
	metrics *Metrics
}

// NewExecutor starts cfg.Workers workers.
func NewExecutor(cfg Config) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid executor config: %w", err)
	}
	e := &Executor{
		queue:  make(chan *job, cfg.QueueSize),
		quit:   make(chan struct{}),
		logger: zap.NewNop(),
	}
	e.workers.Add(cfg.Workers)
	for range cfg.Workers {
		go e.work()
	}
	return e, nil
}

// SetLogger sets the logger for executor lifecycle messages.
func (e *Executor) SetLogger(l *zap.Logger) {
	if l != nil {
		e.logger = l
	}
}

// SetMetrics sets the metrics tracker for this executor.
func (e *Executor) SetMetrics(m *Metrics) {
	e.metrics = m
}

// Spawn schedules t and returns a handle to its completion. Cancelling ctx
// cancels the task.
func (e *Executor) Spawn(ctx context.Context, t Task) *Handle {
	jctx, cancel := context.WithCancel(ctx)
	j := &job{
		ctx:  jctx,
		task: t,
		handle: &Handle{
			done:   make(chan struct{}),
			cancel: cancel,
		},
	}
	if e.metrics != nil {
		e.metrics.Spawned.Inc()
	}
	e.schedule(j)
	return j.handle
}

// Run spawns t and waits for it. When ctx ends first the task is cancelled
// and Run still waits for the cancellation to complete.
func (e *Executor) Run(ctx context.Context, t Task) error {
	h := e.Spawn(ctx, t)
	<-h.Done()
	return h.Err()
}

// Stop stops the workers. Tasks that have not completed are cancelled and
// finish with ErrExecutorStopped. Stop returns ctx.Err() if the workers do
// not exit before ctx ends.
func (e *Executor) Stop(ctx context.Context) error {
	e.stopOnce.Do(func() {
		close(e.quit)
		e.mu.Lock()
		e.stopped = true
		e.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		e.workers.Wait()
		e.parked.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	aborted := 0
	for {
		select {
		case j := <-e.queue:
			e.abort(j)
			aborted++
		default:
			e.logger.Debug("executor stopped", zap.Int("aborted", aborted))
			return nil
		}
	}
}

func (e *Executor) work() {
	defer e.workers.Done()
	unit := tracing.NewUnit()
	for {
		select {
		case j := <-e.queue:
			e.step(unit, j)
		case <-e.quit:
			return
		}
	}
}

func (e *Executor) step(unit *tracing.Unit, j *job) {
	if err := j.ctx.Err(); err != nil {
		Cancel(j.task)
		e.complete(j, err)
		return
	}
	step := j.task.Resume(tracing.ContextWithUnit(j.ctx, unit))
	if step.IsDone() {
		e.complete(j, step.Err())
		return
	}
	e.park(j, step.Wait())
}

// park requeues j once wait fires or its context ends. Requeueing happens
// off the worker so a full queue cannot stall the pool.
func (e *Executor) park(j *job, wait <-chan struct{}) {
	e.parked.Add(1)
	if e.metrics != nil {
		e.metrics.Parked.Inc()
	}
	go func() {
		defer e.parked.Done()
		if e.metrics != nil {
			defer e.metrics.Parked.Dec()
		}
		if wait != nil {
			select {
			case <-wait:
			case <-j.ctx.Done():
			case <-e.quit:
				e.abort(j)
				return
			}
		}
		e.schedule(j)
	}()
}

func (e *Executor) schedule(j *job) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		e.abort(j)
		return
	}
	select {
	case e.queue <- j:
	case <-e.quit:
		e.abort(j)
	}
}

func (e *Executor) abort(j *job) {
	Cancel(j.task)
	e.complete(j, ErrExecutorStopped)
}

func (e *Executor) complete(j *job, err error) {
	if e.metrics != nil {
		e.metrics.observe(err)
	}
	j.handle.finish(err)
}

type job struct {
	ctx    context.Context
	task   Task
	handle *Handle
}

// Handle tracks a spawned task.
type Handle struct {
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
	err    error
}

// Done is closed when the task has completed or been cancelled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err is the task result. It is only meaningful after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task completes or ctx ends. Ending ctx does not
// cancel the task.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel requests cancellation. The task is cancelled the next time a
// worker picks it up, which for a parked task is immediately.
func (h *Handle) Cancel() { h.cancel() }

func (h *Handle) finish(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
		h.cancel()
	})
}
