// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cppx/cppx/internal/clipboard"
	"github.com/cppx/cppx/internal/issue"
	"github.com/cppx/cppx/internal/session"
	"github.com/cppx/cppx/internal/watch"
)

func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var copyOnSuccess bool

	watchCmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-run a C++ file whenever sources change",
		Long: `Run FILE once, then again every time a watched source changes. A change
during a run cancels it and starts over. The watched directory is the
workspace root, or FILE's directory when no root is set.

Patterns, ignores and the debounce interval come from the watch section
of the configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := session.JustRun
			if copyOnSuccess {
				mode = session.RunAndCopy
			}
			return runWatch(cmd, app, flags, args[0], mode)
		},
	}

	watchCmd.Flags().BoolVar(&copyOnSuccess, "copy", false, "copy the flattened source after each successful compile")

	return watchCmd
}

func runWatch(cmd *cobra.Command, app *App, flags *rootFlagValues, file string, mode session.Mode) error {
	ctx := contextOrBackground(cmd.Context())

	cfg, err := app.loadConfig(cmd, flags)
	if err != nil {
		return reportError(cmd, app.stderr, err, flags.verbose)
	}
	// A pending "Press Enter" would hold every later run.
	cfg.Pause = false
	logger := app.newLogger(cfg)

	abs, err := filepath.Abs(file)
	if err != nil {
		return reportError(cmd, app.stderr, err, cfg.UI.Verbose)
	}

	sink := clipboard.Discard
	if mode == session.RunAndCopy {
		if sink, err = app.Clipboard(cfg.Clipboard, app.stderr); err != nil {
			return reportError(cmd, app.stderr, err, cfg.UI.Verbose)
		}
	}

	opts := app.sessionOptions(cfg, logger, sink)
	opts.OnComplete = func(out *session.Outcome) {
		if out.Err != nil {
			fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(out.Err, cfg.UI.Verbose))
		}
		if !out.Canceled {
			fmt.Fprintf(app.stderr, "\n%s Watching for changes (Ctrl+C to stop)...\n", CmdStyle.Render("→"))
		}
	}
	s := session.New(opts)
	defer s.Close() //nolint:errcheck // Close only reports nil

	baseDir := cfg.WorkspaceRoot
	if baseDir == "" {
		baseDir = filepath.Dir(abs)
	}

	w, err := watch.New(watch.Config{
		Patterns:  cfg.Watch.Patterns,
		Ignore:    cfg.Watch.Ignore,
		Gitignore: cfg.Watch.Gitignore,
		Debounce:  cfg.Watch.Debounce,
		BaseDir:   baseDir,
		Logger:    logger,
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Debug("Watch: change detected", "files", changed)
			_, startErr := s.Start(ctx, abs, mode)
			return startErr
		},
	})
	if err != nil {
		return reportError(cmd, app.stderr, watchError(baseDir, err), cfg.UI.Verbose)
	}

	if _, err := s.Start(ctx, abs, mode); err != nil {
		return reportError(cmd, app.stderr, err, cfg.UI.Verbose)
	}

	if err := w.Run(ctx); err != nil {
		return reportError(cmd, app.stderr, watchError(baseDir, err), cfg.UI.Verbose)
	}
	return nil
}

func watchError(dir string, err error) error {
	return issue.NewErrorContext().
		WithOperation("watch").
		WithResource(dir).
		WithIssue(issue.WatchFailedId).
		Wrap(err).
		BuildError()
}
