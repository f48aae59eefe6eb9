package config

import (
	"encoding"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// DefaultDir is the configuration directory, relative to the working directory.
	DefaultDir = "configuration"

	envPrefix    = "APP_"
	envSeparator = "__"
	baseDocument = "base.yaml"
)

// LoadConfiguration resolves the environment from APP_ENVIRONMENT and loads
// settings from ./configuration.
func LoadConfiguration() (*Settings, Environment, error) {
	environment, err := ResolveEnvironment()
	if err != nil {
		return nil, Local, err
	}
	settings, err := Load(environment)
	if err != nil {
		return nil, environment, err
	}
	return settings, environment, nil
}

// Load reads settings for environment from ./configuration.
func Load(environment Environment) (*Settings, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine the current directory: %w", err)
	}
	return LoadFromDir(filepath.Join(wd, DefaultDir), environment)
}

// LoadFromDir merges, lowest precedence first:
//  1. dir/base.yaml
//  2. dir/<environment>.yaml
//  3. APP_-prefixed environment variables, "__" separating nesting levels
//
// Environment variable mapping:
//
//	APP_APPLICATION__PORT     -> application.port
//	APP_DATABASE__PASSWORD    -> database.password
//	APP_LOGGING__LEVEL        -> logging.level
//
// APP_ENVIRONMENT selects the overlay and is never treated as an override.
func LoadFromDir(dir string, environment Environment) (*Settings, error) {
	k := koanf.New(".")

	for _, name := range []string{baseDocument, environment.String() + ".yaml"} {
		path := filepath.Join(dir, name)
		content, err := readDocument(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrParseFailure, path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: environment variables: %v", ErrParseFailure, err)
	}

	var missing []error
	for _, key := range requiredKeys(reflect.TypeOf(Settings{}), "") {
		if !k.Exists(key) {
			missing = append(missing, fmt.Errorf("%w: %s", ErrMissingField, key))
		}
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}

	var settings Settings
	if err := defaults.Set(&settings); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := k.UnmarshalWithConf("", &settings, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &settings,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// envKey maps APP_DATABASE__DATABASE_NAME to database.database_name.
// Returning "" tells koanf to skip the variable.
func envKey(s string) string {
	if s == EnvironmentVar {
		return ""
	}
	trimmed := strings.TrimPrefix(s, envPrefix)
	if !strings.Contains(trimmed, envSeparator) {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(trimmed, envSeparator, "."))
}

// readDocument opens path once and validates it through the open descriptor.
func readDocument(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrMissingSource, path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: %s too large: %d bytes (max %d)", ErrParseFailure, path, info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// requiredKeys lists the dotted koanf paths of every leaf without a default tag.
func requiredKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("koanf")
		if name == "" || name == "-" {
			continue
		}
		if _, optional := field.Tag.Lookup("default"); optional {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if field.Type.Kind() == reflect.Struct && !reflect.PointerTo(field.Type).Implements(textUnmarshalerType) {
			keys = append(keys, requiredKeys(field.Type, key)...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}
