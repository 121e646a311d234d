// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/cppx/cppx/internal/clipboard"
	"github.com/cppx/cppx/internal/session"
	"github.com/cppx/cppx/pkg/types"
)

// errCompilationFailed is the exit cause when the marker was not written.
var errCompilationFailed = errors.New("compilation failed")

func newRunCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "run FILE",
		Short: "Compile and run a C++ file",
		Long: `Compile FILE and, when compilation succeeds, run the program in this
terminal. Nothing is copied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, app, flags, args[0], session.JustRun)
		},
	}
}

func newCopyCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "copy FILE",
		Short: "Compile and run a C++ file, then copy its flattened source",
		Long: `Compile FILE and run the program. When compilation succeeds, every
local #include "..." is inlined recursively and the result is copied to
the clipboard. A crashing program still counts as a successful compile.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, app, flags, args[0], session.RunAndCopy)
		},
	}
}

// runWorkflow performs one session run in the foreground. The exit code is
// non-zero when the run failed or the source did not compile.
func runWorkflow(cmd *cobra.Command, app *App, flags *rootFlagValues, file string, mode session.Mode) error {
	cfg, err := app.loadConfig(cmd, flags)
	if err != nil {
		return reportError(cmd, app.stderr, err, flags.verbose)
	}
	logger := app.newLogger(cfg)

	sink := clipboard.Discard
	if mode == session.RunAndCopy {
		if sink, err = app.Clipboard(cfg.Clipboard, app.stderr); err != nil {
			return reportError(cmd, app.stderr, err, cfg.UI.Verbose)
		}
	}

	s := session.New(app.sessionOptions(cfg, logger, sink))
	defer s.Close() //nolint:errcheck // Close only reports nil

	out, err := s.Run(contextOrBackground(cmd.Context()), file, mode)
	if err != nil {
		return reportError(cmd, app.stderr, err, cfg.UI.Verbose)
	}

	switch {
	case out.Err != nil:
		return reportError(cmd, app.stderr, out.Err, cfg.UI.Verbose)
	case out.Canceled:
		return silentExit(cmd, types.ExitFailure, context.Canceled)
	case !out.Compiled:
		return silentExit(cmd, types.ExitFailure, errCompilationFailed)
	}
	return nil
}
