package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dshills/reconcile/internal/logging"
)

// Config is the complete configuration.
type Config struct {
	Document   DocumentConfig   `toml:"document" yaml:"document"`
	Reconciler ReconcilerConfig `toml:"reconciler" yaml:"reconciler"`
	Log        LogConfig        `toml:"log" yaml:"log"`
	Watch      WatchConfig      `toml:"watch" yaml:"watch"`
}

// DocumentConfig configures how files are loaded into documents.
type DocumentConfig struct {
	// Delimiters lists the legal line delimiters. Empty means CR, LF and CRLF.
	Delimiters []string `toml:"delimiters" yaml:"delimiters"`

	// Store selects the text store: "gap" or "string".
	Store string `toml:"store" yaml:"store"`

	// DefaultType is the content type of text no partition rule claims.
	DefaultType string `toml:"default_type" yaml:"default_type"`

	// Partitions are the partition rules, tried in order.
	Partitions []PartitionRule `toml:"partitions" yaml:"partitions"`
}

// PartitionRule marks text between Start and End as ContentType.
// An empty End closes the partition at the end of the line.
type PartitionRule struct {
	Start       string `toml:"start" yaml:"start"`
	End         string `toml:"end" yaml:"end"`
	ContentType string `toml:"content_type" yaml:"content_type"`
}

// ReconcilerConfig configures the background reconciler.
type ReconcilerConfig struct {
	// Delay is how long edits must settle before reconciling.
	Delay Duration `toml:"delay" yaml:"delay"`

	// Script is the path of a Lua strategy. Empty uses the built-in summary.
	Script string `toml:"script" yaml:"script"`

	// ScriptTimeout bounds each call into the Lua strategy.
	ScriptTimeout Duration `toml:"script_timeout" yaml:"script_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce coalesces bursts of file system events.
	Debounce Duration `toml:"debounce" yaml:"debounce"`
}

// Store names.
const (
	StoreGap    = "gap"
	StoreString = "string"
)

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Document: DocumentConfig{
			Store:       StoreGap,
			DefaultType: "default",
		},
		Reconciler: ReconcilerConfig{
			Delay:         Duration(500 * time.Millisecond),
			ScriptTimeout: Duration(5 * time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Debounce: Duration(100 * time.Millisecond),
		},
	}
}

// LogLevel returns the parsed log level. Invalid names yield LevelInfo;
// Validate reports them.
func (c Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}

// Validate checks every setting and returns all problems joined.
func (c Config) Validate() error {
	var errs []error
	add := func(path, msg string, value any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value})
	}

	for i, d := range c.Document.Delimiters {
		if d == "" {
			add(fmt.Sprintf("document.delimiters[%d]", i), "delimiter must not be empty", d)
		}
	}
	if !slices.Contains([]string{StoreGap, StoreString}, c.Document.Store) {
		add("document.store", `must be "gap" or "string"`, c.Document.Store)
	}
	if c.Document.DefaultType == "" {
		add("document.default_type", "must not be empty", c.Document.DefaultType)
	}
	for i, r := range c.Document.Partitions {
		if r.Start == "" {
			add(fmt.Sprintf("document.partitions[%d].start", i), "must not be empty", r.Start)
		}
		if r.ContentType == "" {
			add(fmt.Sprintf("document.partitions[%d].content_type", i), "must not be empty", r.ContentType)
		}
	}
	if c.Reconciler.Delay < 0 {
		add("reconciler.delay", "must not be negative", c.Reconciler.Delay)
	}
	if c.Reconciler.ScriptTimeout < 0 {
		add("reconciler.script_timeout", "must not be negative", c.Reconciler.ScriptTimeout)
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		add("log.level", "must be debug, info, warn or error", c.Log.Level)
	}
	if c.Watch.Debounce < 0 {
		add("watch.debounce", "must not be negative", c.Watch.Debounce)
	}

	return errors.Join(errs...)
}

// Duration is a time.Duration written as a string like "250ms" in files.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
