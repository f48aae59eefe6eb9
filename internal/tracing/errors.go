package tracing

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is returned when a global pipeline is already installed.
	ErrAlreadyInitialized = errors.New("tracing: global pipeline already initialized")

	// ErrLogBridgeAlreadyInstalled is returned by a second InstallLogBridge.
	ErrLogBridgeAlreadyInstalled = errors.New("tracing: log bridge already installed")

	// ErrUseAfterClose is raised (as a panic) when a closed span is entered.
	ErrUseAfterClose = errors.New("tracing: span used after close")

	// ErrFilterOrder means a filter layer was placed after a non-filter layer.
	ErrFilterOrder = errors.New("tracing: filter layers must precede all other layers")

	// ErrEmptyPipeline means NewPipeline was called without layers.
	ErrEmptyPipeline = errors.New("tracing: pipeline has no layers")
)

// ContextError reports misuse of a specific span. It is a programming
// error and is raised with panic.
type ContextError struct {
	Span string
	ID   ID
	Err  error
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("span %q (id %d): %v", e.Span, e.ID, e.Err)
}

func (e *ContextError) Unwrap() error {
	return e.Err
}
