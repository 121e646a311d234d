// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cppx/cppx/internal/config"
	"github.com/cppx/cppx/pkg/types"
)

// newConfigCommand creates the `cppx config` command tree.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cppx configuration",
		Long: `Manage cppx configuration.

The user configuration is stored in:
  - Linux: ~/.config/cppx/config.cue
  - macOS: ~/Library/Application Support/cppx/config.cue
  - Windows: %APPDATA%\cppx\config.cue

A .cppx.toml file in the current directory overrides it, and CPPX_*
environment variables (e.g. CPPX_COMPILER_COMMAND) override both.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd, app, flags)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, app, flags, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configFilePath(flags)
			if err != nil {
				return reportError(cmd, app.stderr, err, flags.verbose)
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd, flags)
			if err != nil {
				return reportError(cmd, app.stderr, err, flags.verbose)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func configFilePath(flags *rootFlagValues) (string, error) {
	if flags.configPath != "" {
		return flags.configPath, nil
	}
	return config.FilePath("")
}

func showConfig(cmd *cobra.Command, app *App, flags *rootFlagValues) error {
	cfg, err := app.loadConfig(cmd, flags)
	if err != nil {
		return reportError(cmd, app.stderr, err, flags.verbose)
	}

	out := app.stdout
	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	path, pathErr := configFilePath(flags)
	switch {
	case pathErr != nil:
		fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	default:
		if _, statErr := app.Fs.Stat(path); statErr != nil {
			fmt.Fprintf(out, "%s: %s %s\n", CmdStyle.Render("Config file"), path, SubtitleStyle.Render("(not found, using defaults)"))
		} else {
			fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Config file"), path)
		}
	}
	fmt.Fprintln(out)

	root := cfg.WorkspaceRoot
	if root == "" {
		root = "(source file directory)"
	}

	rows := [][2]string{
		{"compiler.command", cfg.Compiler.Command},
		{"compiler.flags", strings.Join(cfg.Compiler.Flags, " ")},
		{"compiler.output", string(cfg.Compiler.Output)},
		{"compiler.stack_unlimited", fmt.Sprint(cfg.Compiler.StackUnlimited)},
		{"runtime", cfg.Runtime.String()},
		{"tty", fmt.Sprint(cfg.TTY)},
		{"marker_name", string(cfg.MarkerName)},
		{"pause", fmt.Sprint(cfg.Pause)},
		{"clear_screen", fmt.Sprint(cfg.ClearScreen)},
		{"clipboard", cfg.Clipboard.String()},
		{"workspace_root", root},
		{"watch.patterns", strings.Join(cfg.Watch.Patterns, ", ")},
		{"watch.debounce", cfg.Watch.Debounce.String()},
		{"watch.gitignore", fmt.Sprint(cfg.Watch.Gitignore)},
		{"ui.color_scheme", cfg.UI.ColorScheme.String()},
		{"ui.verbose", fmt.Sprint(cfg.UI.Verbose)},
	}
	for _, row := range rows {
		fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render(row[0]), SuccessStyle.Render(row[1]))
	}
	return nil
}

func initConfig(cmd *cobra.Command, app *App, flags *rootFlagValues, force bool) error {
	path, err := configFilePath(flags)
	if err != nil {
		return reportError(cmd, app.stderr, err, flags.verbose)
	}

	if err := config.WriteDefault(app.Fs, path, force); err != nil {
		if errors.Is(err, fs.ErrExist) {
			fmt.Fprintf(app.stderr, "%s config file already exists: %s (use --force to overwrite)\n", WarningStyle.Render("!"), path)
			return silentExit(cmd, types.ExitFailure, err)
		}
		return reportError(cmd, app.stderr, err, flags.verbose)
	}

	fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
