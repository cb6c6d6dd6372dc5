// Package app is the reconcile host. It wires configuration, a document
// loaded from a file, a reconciler and its strategy together, then drives
// the document from an edit script or from changes to the file on disk.
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/reconcile/internal/config"
	"github.com/dshills/reconcile/internal/engine/document"
	"github.com/dshills/reconcile/internal/logging"
	"github.com/dshills/reconcile/internal/reconciler"
	"github.com/dshills/reconcile/internal/reconciler/lua"
	"github.com/dshills/reconcile/internal/reconciler/summary"
)

// drainTimeout bounds the final wait for the reconciler after the input
// has stopped.
const drainTimeout = 10 * time.Second

// Options configures the application. Non-empty fields override the
// configuration file and environment.
type Options struct {
	// ConfigPath is the path to a TOML or YAML configuration file.
	ConfigPath string

	// File is the text file loaded into the document.
	File string

	// EditScript is a YAML list of edits replayed against the document.
	EditScript string

	// LuaScript is a Lua strategy, overriding reconciler.script.
	LuaScript string

	// Watch follows changes to File until the context is cancelled.
	Watch bool

	// Delay overrides reconciler.delay, like "250ms".
	Delay string

	// LogLevel overrides log.level.
	LogLevel string

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Application owns one document and the reconciler attached to it.
type Application struct {
	opts    Options
	cfg     config.Config
	logger  *logging.Logger
	metrics *Metrics

	doc        *document.Document
	reconciler *reconciler.Reconciler
	summary    *summary.Strategy
	lua        *lua.Strategy

	running  atomic.Bool
	closed   atomic.Bool
	shutdown sync.Once

	// onWatch is called once the file watcher is ready.
	onWatch func()
}

// New loads configuration and the input file and builds the components.
// Nothing runs until Run.
func New(opts Options) (*Application, error) {
	if opts.File == "" {
		return nil, ErrNoFile
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, &ComponentError{Component: "config", Err: err}
	}

	app := &Application{
		opts:    opts,
		cfg:     cfg,
		metrics: NewMetrics(),
		logger: logging.New(logging.Config{
			Level:  cfg.LogLevel(),
			Output: opts.LogOutput,
			Prefix: "reconcile",
		}),
	}

	if err := app.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// loadConfig layers the command-line overrides on top of the loaded
// configuration and validates the result.
func loadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	if opts.LuaScript != "" {
		cfg.Reconciler.Script = opts.LuaScript
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Delay != "" {
		if err := cfg.Reconciler.Delay.UnmarshalText([]byte(opts.Delay)); err != nil {
			return config.Config{}, &config.ParseError{Path: "-delay", Message: err.Error(), Err: err}
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// bootstrap creates components in dependency order.
func (app *Application) bootstrap() error {
	data, err := os.ReadFile(app.opts.File)
	if err != nil {
		return &OperationError{Op: "read", Target: app.opts.File, Err: err}
	}

	app.doc, err = newDocument(app.cfg.Document, string(data), app.logger)
	if err != nil {
		return &ComponentError{Component: "document", Err: err}
	}

	var strategy reconciler.Strategy
	if path := app.cfg.Reconciler.Script; path != "" {
		app.lua, err = lua.NewFromFile(path,
			lua.WithTimeout(app.cfg.Reconciler.ScriptTimeout.Std()),
			lua.WithLogger(app.logger.WithComponent("lua")),
		)
		if err != nil {
			return &ComponentError{Component: "lua", Err: err}
		}
		strategy = app.lua
	} else {
		app.summary = summary.New()
		strategy = app.summary
	}

	app.reconciler = reconciler.New(
		reconciler.WithDefaultStrategy(strategy),
		reconciler.WithDelay(app.cfg.Reconciler.Delay.Std()),
		reconciler.WithLogger(app.logger),
		reconciler.WithErrorHandler(app.metrics.RecordStrategyError),
	)

	app.logger.Debug("loaded %s: %d bytes, %d lines", app.opts.File, app.doc.Len(), app.doc.NumberOfLines())
	return nil
}

// Config returns the effective configuration.
func (app *Application) Config() config.Config {
	return app.cfg
}

// Document returns the document.
func (app *Application) Document() *document.Document {
	return app.doc
}

// Run installs the reconciler and drives the document until the input is
// exhausted: the edit script is replayed, or the file is watched until ctx
// is cancelled. It returns once the reconciler has caught up.
func (app *Application) Run(ctx context.Context) error {
	if app.closed.Load() {
		return ErrShutdown
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	// The reconciler outlives ctx so that it can drain after a signal.
	if err := app.reconciler.Install(context.WithoutCancel(ctx), app.doc); err != nil {
		return &ComponentError{Component: "reconciler", Err: err}
	}

	var runErr error
	switch {
	case app.opts.EditScript != "":
		runErr = app.replayFile(ctx, app.opts.EditScript)
	case app.opts.Watch:
		runErr = app.watch(ctx)
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if err := app.reconciler.WaitIdle(drainCtx); err != nil {
		if errors.Is(err, reconciler.ErrNotInstalled) {
			err = ErrShutdown
		}
		return errors.Join(runErr, &OperationError{Op: "drain", Err: err})
	}
	return runErr
}

// Shutdown detaches the reconciler and releases the Lua state. It is safe
// to call more than once.
func (app *Application) Shutdown() {
	app.shutdown.Do(func() {
		app.closed.Store(true)
		if app.reconciler.IsInstalled() {
			if err := app.reconciler.Uninstall(); err != nil {
				app.logger.Warn("uninstall: %v", err)
			}
		}
		if app.lua != nil {
			if err := app.lua.Close(); err != nil {
				app.logger.Warn("closing lua: %v", err)
			}
		}
	})
}
