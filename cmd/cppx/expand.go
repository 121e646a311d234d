// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cppx/cppx/internal/expand"
	"github.com/cppx/cppx/internal/issue"
)

func newExpandCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var clip bool

	expandCmd := &cobra.Command{
		Use:   "expand FILE",
		Short: "Print the flattened source of a C++ file without compiling",
		Long: `Inline every local #include "..." of FILE recursively and print the
result. Includes are looked up next to the including file first, then in
the workspace root (--root). Each inlined directive is kept as a comment;
headers reached twice are inlined once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, app, flags, args[0], clip)
		},
	}

	expandCmd.Flags().BoolVar(&clip, "clip", false, "copy the result to the clipboard instead of printing it")

	return expandCmd
}

func runExpand(cmd *cobra.Command, app *App, flags *rootFlagValues, file string, clip bool) error {
	cfg, err := app.loadConfig(cmd, flags)
	if err != nil {
		return reportError(cmd, app.stderr, err, flags.verbose)
	}
	logger := app.newLogger(cfg)

	text, err := expand.New(expand.WithFs(app.Fs), expand.WithLogger(logger)).Expand(file, cfg.WorkspaceRoot)
	if err != nil {
		ctxErr := issue.NewErrorContext().
			WithOperation("expand includes").
			WithResource(file).
			Wrap(err)
		if errors.Is(err, expand.ErrFileNotFound) {
			ctxErr.WithIssue(issue.FileNotFoundId)
		}
		return reportError(cmd, app.stderr, ctxErr.BuildError(), cfg.UI.Verbose)
	}

	if !clip {
		fmt.Fprint(app.stdout, text)
		return nil
	}

	sink, err := app.Clipboard(cfg.Clipboard, app.stderr)
	if err != nil {
		return reportError(cmd, app.stderr, err, cfg.UI.Verbose)
	}
	if err := sink.WriteText(contextOrBackground(cmd.Context()), text); err != nil {
		return reportError(cmd, app.stderr, issue.NewErrorContext().
			WithOperation("copy to clipboard").
			WithIssue(issue.ClipboardUnavailableId).
			Wrap(err).
			BuildError(), cfg.UI.Verbose)
	}
	logger.Infof("[Success] Copied %d bytes.", len(text))
	return nil
}
