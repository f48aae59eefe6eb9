package config

import (
	"fmt"
	"os"
	"strings"
)

// EnvironmentVar selects the overlay document.
const EnvironmentVar = "APP_ENVIRONMENT"

// Environment is the deployment environment. It picks which overlay is
// merged over base.yaml.
type Environment int

const (
	Local Environment = iota
	Production
)

// String returns the canonical lowercase name, which is also the overlay file stem.
func (e Environment) String() string {
	switch e {
	case Local:
		return "local"
	case Production:
		return "production"
	default:
		return fmt.Sprintf("environment(%d)", int(e))
	}
}

// ParseEnvironment parses s case-insensitively.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return Local, nil
	case "production":
		return Production, nil
	default:
		return Local, fmt.Errorf("%w: %q is not a supported environment, use either `local` or `production`",
			ErrInvalidEnvironment, s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Environment) UnmarshalText(text []byte) error {
	parsed, err := ParseEnvironment(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (e Environment) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// ResolveEnvironment reads APP_ENVIRONMENT, defaulting to Local when unset.
func ResolveEnvironment() (Environment, error) {
	raw, ok := os.LookupEnv(EnvironmentVar)
	if !ok {
		return Local, nil
	}
	return ParseEnvironment(raw)
}
