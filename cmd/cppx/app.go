// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cppx/cppx/internal/build"
	"github.com/cppx/cppx/internal/clipboard"
	"github.com/cppx/cppx/internal/config"
	"github.com/cppx/cppx/internal/expand"
	"github.com/cppx/cppx/internal/runtime"
	"github.com/cppx/cppx/internal/session"
)

type (
	// App wires the CLI's shared dependencies. Command handlers receive an
	// App and build per-invocation services from it.
	App struct {
		Config    config.Provider
		Fs        afero.Fs
		Clipboard ClipboardFactory
		Registry  *runtime.Registry
		LookPath  func(string) (string, error)
		stdin     io.Reader
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    config.Provider
		Fs        afero.Fs
		Clipboard ClipboardFactory
		Registry  *runtime.Registry
		LookPath  func(string) (string, error)
		Stdin     io.Reader
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// ClipboardFactory builds the clipboard sink for a mode. tty receives
	// OSC 52 sequences.
	ClipboardFactory func(mode config.ClipboardMode, tty io.Writer) (clipboard.Sink, error)

	// rootFlagValues holds the persistent flags shared by every command.
	rootFlagValues struct {
		configPath string
		verbose    bool
		root       string
		runtime    string
		tty        bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider(nil)
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Clipboard == nil {
		deps.Clipboard = func(mode config.ClipboardMode, tty io.Writer) (clipboard.Sink, error) {
			return clipboard.New(mode, tty, clipboard.HostEnv())
		}
	}
	if deps.Registry == nil {
		deps.Registry = runtime.NewDefaultRegistry()
	}

	return &App{
		Config:    deps.Config,
		Fs:        deps.Fs,
		Clipboard: deps.Clipboard,
		Registry:  deps.Registry,
		LookPath:  deps.LookPath,
		stdin:     deps.Stdin,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}, nil
}

// loadConfig loads configuration for the current directory and applies the
// persistent flag overrides.
func (a *App) loadConfig(cmd *cobra.Command, flags *rootFlagValues) (*config.Config, error) {
	projectDir, err := os.Getwd()
	if err != nil {
		projectDir = ""
	}

	cfg, err := a.Config.Load(cmd.Context(), config.LoadOptions{
		ConfigFilePath: flags.configPath,
		ProjectDir:     projectDir,
		Fs:             a.Fs,
	})
	if err != nil {
		return nil, err
	}

	if flags.root != "" {
		cfg.WorkspaceRoot = flags.root
	}
	if flags.runtime != "" {
		cfg.Runtime = config.RuntimeMode(flags.runtime)
	}
	if cmd.Flags().Changed("tty") {
		cfg.TTY = flags.tty
	}
	if flags.verbose {
		cfg.UI.Verbose = true
	}

	if cfg.WorkspaceRoot != "" {
		abs, absErr := filepath.Abs(cfg.WorkspaceRoot)
		if absErr != nil {
			return nil, fmt.Errorf("resolve workspace root %s: %w", cfg.WorkspaceRoot, absErr)
		}
		cfg.WorkspaceRoot = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns the session logger writing to stderr.
func (a *App) newLogger(cfg *config.Config) *log.Logger {
	level := log.InfoLevel
	if cfg.UI.Verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Level:           level,
		ReportTimestamp: false,
	})
}

// buildOptions maps the compiler configuration onto the script template.
func buildOptions(cfg *config.Config) build.Options {
	return build.Options{
		Compiler:       cfg.Compiler.Command,
		Flags:          cfg.Compiler.Flags,
		Output:         string(cfg.Compiler.Output),
		MarkerName:     string(cfg.MarkerName),
		StackUnlimited: cfg.Compiler.StackUnlimited,
		ClearScreen:    cfg.ClearScreen,
		Pause:          cfg.Pause,
	}
}

// sessionOptions returns the options shared by every session the CLI
// creates. Callers adjust streaming and terminal behavior.
func (a *App) sessionOptions(cfg *config.Config, logger *log.Logger, sink clipboard.Sink) session.Options {
	return session.Options{
		Registry:      a.Registry,
		Runtime:       runtime.RuntimeType(cfg.Runtime),
		Build:         buildOptions(cfg),
		WorkspaceRoot: cfg.WorkspaceRoot,
		TTY:           cfg.TTY,
		IO: runtime.IOContext{
			Stdin:  a.stdin,
			Stdout: a.stdout,
			Stderr: a.stderr,
		},
		Expander:  expand.New(expand.WithFs(a.Fs), expand.WithLogger(logger)),
		Clipboard: sink,
		Logger:    logger,
		Fs:        a.Fs,
		LookPath:  a.LookPath,
	}
}

// glamourStyle maps the configured color scheme onto a glamour style,
// falling back to plain text when stdout is not a terminal.
func (a *App) glamourStyle(cfg *config.Config) string {
	if !isTerminal(a.stdout) {
		return "notty"
	}
	switch cfg.UI.ColorScheme {
	case config.ColorSchemeDark, config.ColorSchemeLight:
		return string(cfg.UI.ColorScheme)
	default:
		return "auto"
	}
}

// isTerminal reports whether w is an *os.File attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// contextOrBackground guards handlers invoked without a context in tests.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
