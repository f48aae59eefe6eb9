// internal/config/types.go
package config

import (
	"encoding"
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration for text unmarshaling (YAML, env vars).
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

const redacted = "[REDACTED]"

// Secret holds a value that must never appear in logs, debug output or
// serialized settings. Every rendering path prints [REDACTED]; the raw
// value is only reachable through ExposeSecret.
//
// Secret offers no comparison helpers, and == does not compile on it.
type Secret[T any] struct {
	_     [0]func()
	value T
	set   bool
}

// NewSecret wraps v.
func NewSecret[T any](v T) Secret[T] {
	return Secret[T]{value: v, set: true}
}

// ExposeSecret returns the wrapped value. Call it only at the point of use.
func (s Secret[T]) ExposeSecret() T {
	return s.value
}

// IsSet reports whether a value was ever assigned.
func (s Secret[T]) IsSet() bool {
	return s.set
}

// String implements fmt.Stringer. Set or not, the result is [REDACTED].
func (s Secret[T]) String() string {
	return redacted
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret[T]) GoString() string {
	return "Secret([REDACTED])"
}

// Format implements fmt.Formatter so that no verb (%v, %+v, %s, %q, %x, %d)
// can reach the wrapped value through reflection.
func (s Secret[T]) Format(f fmt.State, verb rune) {
	switch {
	case verb == 'v' && f.Flag('#'):
		_, _ = f.Write([]byte(s.GoString()))
	case verb == 'q':
		_, _ = fmt.Fprintf(f, "%q", s.String())
	default:
		_, _ = f.Write([]byte(s.String()))
	}
}

// MarshalJSON implements json.Marshaler. Always returns redacted value.
func (s Secret[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalText implements encoding.TextMarshaler. Always returns redacted value.
func (s Secret[T]) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarshalYAML implements yaml.Marshaler. Always returns redacted value.
func (s Secret[T]) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Accepts raw secret values.
func (s *Secret[T]) UnmarshalText(text []byte) error {
	switch v := any(&s.value).(type) {
	case *string:
		*v = string(text)
	case *[]byte:
		*v = append([]byte(nil), text...)
	case encoding.TextUnmarshaler:
		if err := v.UnmarshalText(text); err != nil {
			return err
		}
	default:
		if err := json.Unmarshal(text, &s.value); err != nil {
			return fmt.Errorf("secret: cannot decode text into %T", s.value)
		}
	}
	s.set = true
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Accepts raw secret values.
func (s *Secret[T]) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &s.value); err != nil {
		return err
	}
	s.set = true
	return nil
}
