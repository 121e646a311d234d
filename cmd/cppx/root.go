// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for cppx.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/cppx/cppx/internal/issue"
	"github.com/cppx/cppx/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the cppx command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "cppx",
		Short: "Compile, run and flatten single-file C++ programs",
		Long: TitleStyle.Render("cppx") + SubtitleStyle.Render(" - compile, run and flatten single-file C++ programs") + `

cppx compiles a C++ source file, runs it in your terminal, and on a
successful compile inlines every local #include "..." into one
self-contained file on the clipboard, ready for judges that accept a
single source file.

` + SubtitleStyle.Render("Examples:") + `
  cppx run main.cpp              Compile and run
  cppx copy main.cpp             Compile, run, and copy the flattened source
  cppx expand main.cpp --root .  Print the flattened source without compiling
  cppx watch main.cpp --copy     Re-run on every save
  cppx serve                     Serve the tools over MCP on stdio`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/cppx/config.cue)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&flags.root, "root", "", "workspace root for include lookup and the build directory")
	pf.StringVar(&flags.runtime, "runtime", "", "build script runtime: native or virtual")
	pf.BoolVar(&flags.tty, "tty", false, "attach the program to a pseudo-terminal (native runtime)")

	rootCmd.AddCommand(
		newRunCommand(app, flags),
		newCopyCommand(app, flags),
		newExpandCommand(app, flags),
		newWatchCommand(app, flags),
		newServeCommand(app, flags),
		newConfigCommand(app, flags),
		newExplainCommand(app, flags),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with its status.
func Execute() {
	os.Exit(int(run(context.Background(), os.Args[1:])))
}

// run executes the command tree with args and returns the exit code.
func run(ctx context.Context, args []string) types.ExitCode {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		return types.ExitFailure
	}

	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)

	if err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return types.ExitFailure
	}
	return types.ExitSuccess
}

// errorHandler skips ExitErrors, which were reported by the command.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// render their suggestions; verbose mode adds the error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// reportError prints err to w and returns a silent ExitError.
func reportError(cmd *cobra.Command, w io.Writer, err error, verbose bool) error {
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	return silentExit(cmd, types.ExitFailure, err)
}
