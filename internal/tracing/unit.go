package tracing

import "context"

// Unit is the activation state of one execution unit: the stack of spans
// entered on it, the top being the current span. A Unit must only be used by
// the goroutine that owns it.
type Unit struct {
	stack []*Span
}

// NewUnit returns an empty unit.
func NewUnit() *Unit {
	return &Unit{}
}

// Current returns the active span, or nil.
func (u *Unit) Current() *Span {
	if u == nil || len(u.stack) == 0 {
		return nil
	}
	return u.stack[len(u.stack)-1]
}

// Depth is the number of entered spans.
func (u *Unit) Depth() int {
	if u == nil {
		return 0
	}
	return len(u.stack)
}

func (u *Unit) push(s *Span) {
	u.stack = append(u.stack, s)
}

// pop removes the most recent activation of s. Exits normally happen in
// reverse order, but an out-of-order exit must not strand other spans.
func (u *Unit) pop(s *Span) {
	for i := len(u.stack) - 1; i >= 0; i-- {
		if u.stack[i] == s {
			copy(u.stack[i:], u.stack[i+1:])
			u.stack[len(u.stack)-1] = nil
			u.stack = u.stack[:len(u.stack)-1]
			return
		}
	}
}

type unitKey struct{}

// ContextWithUnit returns a context carrying u.
func ContextWithUnit(ctx context.Context, u *Unit) context.Context {
	return context.WithValue(ctx, unitKey{}, u)
}

// UnitFromContext returns the unit in ctx, or nil.
func UnitFromContext(ctx context.Context) *Unit {
	if ctx == nil {
		return nil
	}
	u, _ := ctx.Value(unitKey{}).(*Unit)
	return u
}

// CurrentSpan returns the active span of the unit in ctx, or nil.
func CurrentSpan(ctx context.Context) *Span {
	return UnitFromContext(ctx).Current()
}
