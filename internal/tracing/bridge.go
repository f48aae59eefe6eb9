package tracing

import (
	"bytes"
	"io"
	"log"
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// LogTarget is the target of events forwarded from the standard library log package.
const LogTarget = "log"

var bridgeInstalled atomic.Bool

// InstallLogBridge redirects the standard library log package into the
// global dispatch as context-less info events. It may be called once per
// process; the second call returns ErrLogBridgeAlreadyInstalled.
func InstallLogBridge() error {
	if !bridgeInstalled.CompareAndSwap(false, true) {
		return ErrLogBridgeAlreadyInstalled
	}
	log.SetFlags(0)
	log.SetPrefix("")
	log.SetOutput(NewLogBridge(nil))
	return nil
}

// NewLogBridge returns a writer that turns each line into an event on d.
// A nil d forwards to whatever dispatch is global at write time.
func NewLogBridge(d *Dispatch) io.Writer {
	return &logBridge{dispatch: d}
}

type logBridge struct {
	dispatch *Dispatch
}

func (b *logBridge) Write(p []byte) (int, error) {
	d := b.dispatch
	if d == nil {
		d = Global()
	}
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		d.emit(nil, zapcore.InfoLevel, LogTarget, string(line), nil)
	}
	return len(p), nil
}
