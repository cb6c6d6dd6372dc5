package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// envSetter applies one environment variable to a Config.
type envSetter func(cfg *Config, value string) error

// envSettings maps variable names, without the prefix, to setters.
var envSettings = map[string]envSetter{
	"DOCUMENT_DELIMITERS": func(cfg *Config, v string) error {
		delims, err := parseList(v)
		if err != nil {
			return err
		}
		cfg.Document.Delimiters = delims
		return nil
	},
	"DOCUMENT_STORE": func(cfg *Config, v string) error {
		cfg.Document.Store = strings.ToLower(v)
		return nil
	},
	"DOCUMENT_DEFAULT_TYPE": func(cfg *Config, v string) error {
		cfg.Document.DefaultType = v
		return nil
	},
	"RECONCILER_DELAY": durationSetter(func(cfg *Config) *Duration { return &cfg.Reconciler.Delay }),
	"RECONCILER_SCRIPT": func(cfg *Config, v string) error {
		cfg.Reconciler.Script = v
		return nil
	},
	"RECONCILER_SCRIPT_TIMEOUT": durationSetter(func(cfg *Config) *Duration { return &cfg.Reconciler.ScriptTimeout }),
	"LOG_LEVEL": func(cfg *Config, v string) error {
		cfg.Log.Level = v
		return nil
	},
	"WATCH_DEBOUNCE": durationSetter(func(cfg *Config) *Duration { return &cfg.Watch.Debounce }),
}

func durationSetter(field func(cfg *Config) *Duration) envSetter {
	return func(cfg *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(cfg) = Duration(d)
		return nil
	}
}

// parseList accepts a JSON array of strings, so delimiters can be written
// with escapes: ["\n", "\r\n"].
func parseList(v string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(v), &list); err != nil {
		return nil, fmt.Errorf("expected a JSON array of strings: %w", err)
	}
	return list, nil
}

// EnvNames returns the recognized environment variable names, sorted.
func (l *Loader) EnvNames() []string {
	names := make([]string, 0, len(envSettings))
	for name := range envSettings {
		names = append(names, l.prefix+name)
	}
	slices.Sort(names)
	return names
}

// ApplyEnv overlays the environment onto cfg. Unset variables are skipped;
// a set but empty variable clears string settings.
func (l *Loader) ApplyEnv(cfg *Config) error {
	for name, set := range envSettings {
		key := l.prefix + name
		v, ok := l.lookupEnv(key)
		if !ok {
			continue
		}
		if err := set(cfg, v); err != nil {
			return &ParseError{Path: key, Message: err.Error(), Err: err}
		}
	}
	return nil
}
