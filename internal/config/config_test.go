package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dshills/reconcile/internal/logging"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500*time.Millisecond, cfg.Reconciler.Delay.Std())
	assert.Equal(t, StoreGap, cfg.Document.Store)
	assert.Equal(t, logging.LevelInfo, cfg.LogLevel())
}

const tomlConfig = `
[document]
delimiters = ["\n", "<br>"]
default_type = "code"

[[document.partitions]]
start = "/*"
end = "*/"
content_type = "comment"

[[document.partitions]]
start = "//"
content_type = "comment"

[reconciler]
delay = "250ms"
script = "todo.lua"

[log]
level = "debug"
`

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "reconcile.toml", tomlConfig)

	cfg, err := NewLoader(WithLookupEnv(env(nil))).Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"\n", "<br>"}, cfg.Document.Delimiters)
	assert.Equal(t, "code", cfg.Document.DefaultType)
	assert.Equal(t, []PartitionRule{
		{Start: "/*", End: "*/", ContentType: "comment"},
		{Start: "//", ContentType: "comment"},
	}, cfg.Document.Partitions)
	assert.Equal(t, 250*time.Millisecond, cfg.Reconciler.Delay.Std())
	assert.Equal(t, "todo.lua", cfg.Reconciler.Script)
	assert.Equal(t, logging.LevelDebug, cfg.LogLevel())

	// Untouched sections keep their defaults
	assert.Equal(t, StoreGap, cfg.Document.Store)
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce.Std())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "reconcile.yaml", `
document:
  delimiters: ["\r\n"]
  store: string
  partitions:
    - start: '"'
      end: '"'
      content_type: string
reconciler:
  delay: 1s
watch:
  debounce: 50ms
`)

	cfg, err := NewLoader(WithLookupEnv(env(nil))).Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"\r\n"}, cfg.Document.Delimiters)
	assert.Equal(t, StoreString, cfg.Document.Store)
	assert.Equal(t, []PartitionRule{{Start: `"`, End: `"`, ContentType: "string"}}, cfg.Document.Partitions)
	assert.Equal(t, time.Second, cfg.Reconciler.Delay.Std())
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce.Std())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEmptyYAML(t *testing.T) {
	path := writeFile(t, "empty.yml", "")
	cfg, err := NewLoader(WithLookupEnv(env(nil))).Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "reconcile.toml", tomlConfig)

	l := NewLoader(WithLookupEnv(env(map[string]string{
		"RECONCILE_RECONCILER_DELAY":    "2s",
		"RECONCILE_LOG_LEVEL":           "warn",
		"RECONCILE_DOCUMENT_DELIMITERS": `["\r"]`,
		"OTHER_LOG_LEVEL":               "error",
	})))
	cfg, err := l.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Reconciler.Delay.Std())
	assert.Equal(t, logging.LevelWarn, cfg.LogLevel())
	assert.Equal(t, []string{"\r"}, cfg.Document.Delimiters)
	assert.Equal(t, "todo.lua", cfg.Reconciler.Script)
}

func TestEnvPrefix(t *testing.T) {
	l := NewLoader(
		WithEnvPrefix("RC_"),
		WithLookupEnv(env(map[string]string{"RC_WATCH_DEBOUNCE": "1ms"})),
	)
	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, cfg.Watch.Debounce.Std())
	assert.Contains(t, l.EnvNames(), "RC_LOG_LEVEL")
}

func TestEnvParseError(t *testing.T) {
	tests := map[string]string{
		"RECONCILE_RECONCILER_DELAY":    "soon",
		"RECONCILE_DOCUMENT_DELIMITERS": "\\n",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := NewLoader(WithLookupEnv(env(map[string]string{key: value}))).Load("")
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, key, pe.Path)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	l := NewLoader(WithLookupEnv(env(nil)))

	_, err := l.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = l.Load(writeFile(t, "config.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = l.Load(writeFile(t, "bad.toml", "[document\nstore = 1"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Positive(t, pe.Line)

	_, err = l.Load(writeFile(t, "unknown.toml", "[document]\ncolour = \"red\""))
	assert.ErrorAs(t, err, &pe)

	_, err = l.Load(writeFile(t, "unknown.yaml", "log:\n  colour: red\n"))
	require.ErrorAs(t, err, &pe)
	assert.Zero(t, pe.Line)
	assert.Contains(t, pe.Error(), "line 2")
	var te *yaml.TypeError
	assert.ErrorAs(t, err, &te)

	_, err = l.Load(writeFile(t, "bad.yaml", "reconciler:\n  delay: later\n"))
	assert.ErrorAs(t, err, &pe)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Document.Delimiters = []string{"\n", ""}
	cfg.Document.Store = "rope"
	cfg.Document.Partitions = []PartitionRule{{End: "*/"}}
	cfg.Reconciler.Delay = Duration(-time.Second)
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)

	var paths []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ve *ValidationError
		require.True(t, errors.As(e, &ve))
		paths = append(paths, ve.Path)
	}
	assert.Equal(t, []string{
		"document.delimiters[1]",
		"document.store",
		"document.partitions[0].start",
		"document.partitions[0].content_type",
		"reconciler.delay",
		"log.level",
	}, paths)
}

func TestParseError_Error(t *testing.T) {
	assert.Equal(t, "parse error in a.toml at line 2, column 3: bad",
		(&ParseError{Path: "a.toml", Line: 2, Column: 3, Message: "bad"}).Error())
	assert.Equal(t, "parse error in a.yaml at line 2: bad",
		(&ParseError{Path: "a.yaml", Line: 2, Message: "bad"}).Error())
	assert.Equal(t, "parse error in X: bad",
		(&ParseError{Path: "X", Message: "bad"}).Error())
}
