package tracing

import (
	"sync/atomic"
)

var (
	noop   = NewDispatch(nil)
	global atomic.Pointer[Dispatch]
)

// Global returns the installed dispatch, or a no-op one before Init.
func Global() *Dispatch {
	if d := global.Load(); d != nil {
		return d
	}
	return noop
}

// InstallGlobalPipeline makes p the process-wide pipeline. Only the first
// call succeeds; later calls return ErrAlreadyInitialized and leave the
// first pipeline active.
func InstallGlobalPipeline(p *Pipeline) (*Dispatch, error) {
	d := NewDispatch(p)
	if !global.CompareAndSwap(nil, d) {
		return nil, ErrAlreadyInitialized
	}
	return d, nil
}

// Init installs the log bridge and then the global pipeline. Both are
// once-per-process; callers treat any error as fatal. A second call returns
// ErrAlreadyInitialized without touching the bridge.
func Init(p *Pipeline) (*Dispatch, error) {
	if global.Load() != nil {
		return nil, ErrAlreadyInitialized
	}
	if err := InstallLogBridge(); err != nil {
		return nil, err
	}
	return InstallGlobalPipeline(p)
}
