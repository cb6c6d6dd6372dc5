// Package main is the entry point for the reconcile tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/reconcile/internal/app"
	"github.com/dshills/reconcile/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type cliOptions struct {
	app    app.Options
	format string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts.app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx)

	if err := application.Report().Write(os.Stdout, opts.format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: writing report: %v\n", err)
		return 1
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return 1
	}
	return 0
}

func parseFlags() cliOptions {
	var opts cliOptions
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.app.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml)")
	flag.StringVar(&opts.app.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.app.EditScript, "script", "", "YAML edit script to replay")
	flag.StringVar(&opts.app.LuaScript, "lua", "", "Lua reconciling strategy")
	flag.BoolVar(&opts.app.Watch, "watch", false, "Follow changes to FILE until interrupted")
	flag.StringVar(&opts.app.Delay, "delay", "", "Reconciler delay, like 250ms (overrides config)")
	flag.StringVar(&opts.app.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.format, "format", app.FormatText, "Report format (text, yaml)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "reconcile - incremental document reconciler\n\n")
		fmt.Fprintf(os.Stderr, "Usage: reconcile [options] FILE\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		for _, name := range config.NewLoader().EnvNames() {
			fmt.Fprintf(os.Stderr, "  %s\n", name)
		}
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  reconcile notes.txt                      Summarize the document\n")
		fmt.Fprintf(os.Stderr, "  reconcile -script edits.yaml notes.txt   Replay edits\n")
		fmt.Fprintf(os.Stderr, "  reconcile -lua todo.lua -watch notes.txt Annotate while editing\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("reconcile %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if opts.app.EditScript != "" && opts.app.Watch {
		fmt.Fprintf(os.Stderr, "Error: -script and -watch are mutually exclusive\n")
		os.Exit(2)
	}
	switch opts.format {
	case app.FormatText, app.FormatYAML:
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid format %q (must be text or yaml)\n", opts.format)
		os.Exit(2)
	}

	opts.app.File = flag.Arg(0)
	return opts
}
