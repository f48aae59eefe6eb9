package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `application:
  host: 127.0.0.1
  port: 8000
database:
  host: localhost
  port: 5432
  username: postgres
  password: password
  database_name: newsletter
`

// unsetEnv removes key for the duration of the test; t.Setenv restores it.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func writeDocs(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadFromDir_OverlayMerge(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"base.yaml": baseYAML,
		"local.yaml": `application:
  host: 0.0.0.0
logging:
  level: debug
`,
	})

	s, err := LoadFromDir(dir, Local)
	require.NoError(t, err)

	// overlapping key takes the overlay value
	assert.Equal(t, "0.0.0.0", s.Application.Host)
	// base-only key passes through
	assert.Equal(t, uint16(8000), s.Application.Port)
	// overlay-only key appears
	assert.Equal(t, "debug", s.Logging.Level)

	assert.Equal(t, "password", s.Database.Password.ExposeSecret())
	assert.Equal(t, "newsletter", s.Database.DatabaseName)
}

func TestLoadFromDir_Defaults(t *testing.T) {
	dir := writeDocs(t, map[string]string{"base.yaml": baseYAML, "production.yaml": "{}\n"})

	s, err := LoadFromDir(dir, Production)
	require.NoError(t, err)

	assert.Equal(t, "info", s.Logging.Level)
	assert.Equal(t, "bunyan", s.Logging.Format)
	assert.True(t, s.Logging.Redaction)
	assert.False(t, s.Database.RequireSSL)
	assert.Equal(t, 50, s.Database.MaxOpenConns)
	assert.Equal(t, 25, s.Database.MaxIdleConns)
	assert.Equal(t, time.Minute, s.Database.ConnMaxLifetime.Duration())
	assert.Equal(t, 10*time.Second, s.Application.ShutdownTimeout.Duration())
	assert.Equal(t, 4, s.Executor.Workers)
	assert.Equal(t, "grpc", s.Telemetry.Protocol)
	assert.InDelta(t, 1.0, s.Telemetry.SamplingRate, 0.0001)
}

func TestLoadFromDir_EnvironmentOverrides(t *testing.T) {
	dir := writeDocs(t, map[string]string{"base.yaml": baseYAML, "local.yaml": "{}\n"})
	t.Setenv("APP_APPLICATION__PORT", "5001")
	t.Setenv("APP_DATABASE__PASSWORD", "from-env")
	t.Setenv("APP_DATABASE__DATABASE_NAME", "other")
	t.Setenv("APP_DATABASE__REQUIRE_SSL", "true")
	t.Setenv(EnvironmentVar, "production")

	s, err := LoadFromDir(dir, Local)
	require.NoError(t, err)

	assert.Equal(t, uint16(5001), s.Application.Port)
	assert.Equal(t, "from-env", s.Database.Password.ExposeSecret())
	assert.Equal(t, "other", s.Database.DatabaseName)
	assert.True(t, s.Database.RequireSSL)
}

func TestLoadFromDir_MissingSource(t *testing.T) {
	t.Run("base", func(t *testing.T) {
		dir := writeDocs(t, map[string]string{"local.yaml": "{}\n"})
		_, err := LoadFromDir(dir, Local)
		require.ErrorIs(t, err, ErrMissingSource)
		assert.Contains(t, err.Error(), "base.yaml")
	})
	t.Run("overlay", func(t *testing.T) {
		dir := writeDocs(t, map[string]string{"base.yaml": baseYAML, "local.yaml": "{}\n"})
		_, err := LoadFromDir(dir, Production)
		require.ErrorIs(t, err, ErrMissingSource)
		assert.Contains(t, err.Error(), "production.yaml")
	})
}

func TestLoadFromDir_ParseFailure(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"base.yaml":  baseYAML,
		"local.yaml": "application: [unterminated\n",
	})
	_, err := LoadFromDir(dir, Local)
	require.ErrorIs(t, err, ErrParseFailure)
}

func TestLoadFromDir_TooLarge(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"base.yaml":  baseYAML + "# " + strings.Repeat("x", maxConfigFileSize) + "\n",
		"local.yaml": "{}\n",
	})
	_, err := LoadFromDir(dir, Local)
	require.ErrorIs(t, err, ErrParseFailure)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadFromDir_MissingField(t *testing.T) {
	withoutPassword := strings.Replace(baseYAML, "  password: password\n", "", 1)
	dir := writeDocs(t, map[string]string{"base.yaml": withoutPassword, "local.yaml": "{}\n"})

	_, err := LoadFromDir(dir, Local)
	require.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "database.password")
}

func TestLoadFromDir_MissingFieldSatisfiedByEnv(t *testing.T) {
	withoutPassword := strings.Replace(baseYAML, "  password: password\n", "", 1)
	dir := writeDocs(t, map[string]string{"base.yaml": withoutPassword, "local.yaml": "{}\n"})
	t.Setenv("APP_DATABASE__PASSWORD", "injected")

	s, err := LoadFromDir(dir, Local)
	require.NoError(t, err)
	assert.Equal(t, "injected", s.Database.Password.ExposeSecret())
}

func TestLoadFromDir_TypeMismatch(t *testing.T) {
	tests := map[string]string{
		"not a number":  "not-a-port",
		"out of range":  "70000",
		"negative port": "-1",
	}
	for name, port := range tests {
		t.Run(name, func(t *testing.T) {
			dir := writeDocs(t, map[string]string{"base.yaml": baseYAML, "local.yaml": "{}\n"})
			t.Setenv("APP_APPLICATION__PORT", port)

			_, err := LoadFromDir(dir, Local)
			require.ErrorIs(t, err, ErrTypeMismatch)
		})
	}
}

func TestLoadFromDir_InvalidValue(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"base.yaml":  baseYAML,
		"local.yaml": "logging:\n  format: xml\n",
	})
	_, err := LoadFromDir(dir, Local)
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "application.port", envKey("APP_APPLICATION__PORT"))
	assert.Equal(t, "database.database_name", envKey("APP_DATABASE__DATABASE_NAME"))
	assert.Equal(t, "", envKey(EnvironmentVar))
	assert.Equal(t, "", envKey("APP_PLAIN"))
}

func TestRequiredKeys(t *testing.T) {
	keys := requiredKeys(reflectSettings(), "")
	assert.ElementsMatch(t, []string{
		"application.host",
		"application.port",
		"database.username",
		"database.password",
		"database.host",
		"database.port",
		"database.database_name",
	}, keys)
}

func TestLoadConfiguration_UsesRepositoryDocuments(t *testing.T) {
	root, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)
	t.Chdir(root)
	unsetEnv(t, EnvironmentVar)

	s, env, err := LoadConfiguration()
	require.NoError(t, err)
	assert.Equal(t, Local, env)
	assert.NotEmpty(t, s.Database.DatabaseName)
	assert.True(t, s.Database.Password.IsSet())
}
