package logging

import (
	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger returns a *zap.Logger whose entries become context-less
// events on d. The logger name becomes the event target.
//
// Useful when integrating with libraries that require a *zap.Logger.
func NewZapLogger(d *tracing.Dispatch) *zap.Logger {
	return zap.New(&dispatchCore{dispatch: d})
}

type dispatchCore struct {
	dispatch *tracing.Dispatch
	fields   []zapcore.Field
}

// Enabled accepts everything; the pipeline's filters decide per target in Check.
func (c *dispatchCore) Enabled(zapcore.Level) bool { return true }

func (c *dispatchCore) With(fields []zapcore.Field) zapcore.Core {
	return &dispatchCore{
		dispatch: c.dispatch,
		fields:   append(append([]zapcore.Field(nil), c.fields...), fields...),
	}
}

func (c *dispatchCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	meta := tracing.Metadata{Name: ent.Message, Target: target(ent), Level: ent.Level, Kind: tracing.KindEvent}
	if c.dispatch.Enabled(meta) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *dispatchCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := fields
	if len(c.fields) > 0 {
		all = append(append([]zapcore.Field(nil), c.fields...), fields...)
	}
	c.dispatch.Emit(ent.Level, target(ent), ent.Message, all...)
	return nil
}

func (c *dispatchCore) Sync() error {
	return c.dispatch.Sync()
}

func target(ent zapcore.Entry) string {
	if ent.LoggerName == "" {
		return tracing.DefaultTarget
	}
	return ent.LoggerName
}
