// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cppx/cppx/internal/expand"
	"github.com/cppx/cppx/internal/mcptools"
	"github.com/cppx/cppx/internal/runtime"
	"github.com/cppx/cppx/internal/session"
)

func newServeCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the expand and run tools over MCP on stdio",
		Long: `Run a Model Context Protocol server on stdin and stdout exposing the
cppx_expand and cppx_run tools. Program output is captured and returned
to the client; logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, app, flags)
		},
	}
}

func runServe(cmd *cobra.Command, app *App, flags *rootFlagValues) error {
	cfg, err := app.loadConfig(cmd, flags)
	if err != nil {
		return reportError(cmd, app.stderr, err, flags.verbose)
	}
	// Stdout carries the protocol: no screen control and no terminal.
	cfg.ClearScreen = false
	cfg.Pause = false
	cfg.TTY = false
	logger := app.newLogger(cfg)

	sink, err := app.Clipboard(cfg.Clipboard, app.stderr)
	if err != nil {
		return reportError(cmd, app.stderr, err, cfg.UI.Verbose)
	}

	opts := app.sessionOptions(cfg, logger, sink)
	opts.Capture = true
	opts.IO = runtime.IOContext{}
	s := session.New(opts)
	defer s.Close() //nolint:errcheck // Close only reports nil

	baseDir, err := os.Getwd()
	if err != nil {
		baseDir = ""
	}

	server := mcptools.NewServer(getVersionString(),
		&mcptools.ExpandHandler{
			Expander:      expand.New(expand.WithFs(app.Fs), expand.WithLogger(logger)),
			WorkspaceRoot: cfg.WorkspaceRoot,
			BaseDir:       baseDir,
			Logger:        logger,
		},
		&mcptools.RunHandler{
			Session: s,
			BaseDir: baseDir,
			Logger:  logger,
		},
	)

	logger.Info("MCP server starting on stdio")
	if err := mcptools.Serve(contextOrBackground(cmd.Context()), server); err != nil {
		return reportError(cmd, app.stderr, err, cfg.UI.Verbose)
	}
	return nil
}
