package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Loader reads configuration layers.
type Loader struct {
	readFile  func(path string) ([]byte, error)
	lookupEnv func(key string) (string, bool)
	prefix    string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithReadFile replaces os.ReadFile.
func WithReadFile(fn func(path string) ([]byte, error)) LoaderOption {
	return func(l *Loader) {
		l.readFile = fn
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(key string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookupEnv = fn
	}
}

// WithEnvPrefix changes the environment variable prefix.
// The prefix should include the trailing underscore.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.prefix = prefix
	}
}

// DefaultEnvPrefix prefixes every environment variable Load reads.
const DefaultEnvPrefix = "RECONCILE_"

// NewLoader creates a loader reading the real file system and environment.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		readFile:  os.ReadFile,
		lookupEnv: os.LookupEnv,
		prefix:    DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the defaults overlaid with the file at path (skipped when
// path is empty) and the environment. The result is validated.
func Load(path string) (Config, error) {
	return NewLoader().Load(path)
}

// Load implements the package-level Load for this loader.
func (l *Loader) Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := l.LoadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := l.ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the file at path onto cfg. Settings missing from the
// file keep their current values.
func (l *Loader) LoadFile(cfg *Config, path string) error {
	data, err := l.readFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return DecodeTOML(cfg, path, data)
	case ".yaml", ".yml":
		return DecodeYAML(cfg, path, data)
	default:
		return fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// DecodeTOML overlays TOML data onto cfg. Unknown keys are errors.
func DecodeTOML(cfg *Config, source string, data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		pe := &ParseError{Path: source, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			pe.Line, pe.Column = derr.Position()
		}
		return pe
	}
	return nil
}

// DecodeYAML overlays YAML data onto cfg. Unknown keys are errors.
func DecodeYAML(cfg *Config, source string, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty document is not an error
		if errors.Is(err, io.EOF) {
			return nil
		}
		// yaml.v3 exposes no typed position; its message already names the line.
		return &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return nil
}
