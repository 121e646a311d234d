// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/cppx/cppx/internal/issue"
	"github.com/cppx/cppx/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "cppx"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// ProjectFileName is the per-project override file looked up in the project directory.
	ProjectFileName = ".cppx.toml"
	// EnvPrefix prefixes environment overrides, e.g. CPPX_COMPILER_COMMAND.
	EnvPrefix = "CPPX"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the cppx configuration directory: %APPDATA% on Windows,
// ~/Library/Application Support on macOS, $XDG_CONFIG_HOME (default ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// FilePath returns the user config file path, honoring an explicit config directory.
func FilePath(configDirPath string) (string, error) {
	dir, err := configDirWithOverride(configDirPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions merges, in increasing precedence: built-in defaults, the
// user CUE file (or opts.ConfigFilePath), the project's .cppx.toml and
// CPPX_* environment variables. It returns the files that were read.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, []string, error) {
	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var sources []string

	if opts.ConfigFilePath != "" {
		if !fileExists(fsys, opts.ConfigFilePath) {
			return nil, nil, loadError(opts.ConfigFilePath, fmt.Errorf("config file not found: %s", opts.ConfigFilePath),
				"Verify the file path is correct",
				"Use 'cppx config init' to create the default configuration")
		}
		if err := loadCUEIntoViper(fsys, v, opts.ConfigFilePath); err != nil {
			return nil, nil, loadError(opts.ConfigFilePath, err, cueSuggestions...)
		}
		sources = append(sources, opts.ConfigFilePath)
	} else {
		cuePath, err := FilePath(opts.ConfigDirPath)
		if err != nil {
			return nil, nil, err
		}
		if fileExists(fsys, cuePath) {
			if err := loadCUEIntoViper(fsys, v, cuePath); err != nil {
				return nil, nil, loadError(cuePath, err, cueSuggestions...)
			}
			sources = append(sources, cuePath)
		}
	}

	if opts.ProjectDir != "" {
		tomlPath := filepath.Join(opts.ProjectDir, ProjectFileName)
		if fileExists(fsys, tomlPath) {
			if err := loadTOMLIntoViper(fsys, v, tomlPath); err != nil {
				return nil, nil, loadError(tomlPath, err,
					"Check that the file contains valid TOML",
					"Keys follow the same layout as config.cue, e.g. [compiler] command = \"clang++\"")
			}
			sources = append(sources, tomlPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, loadError("", fmt.Errorf("failed to parse config: %w", err),
			"Check CPPX_* environment variables for malformed values")
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Run 'cppx config show' to inspect the merged configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, sources, nil
}

var cueSuggestions = []string{
	"Check that the file contains valid CUE syntax",
	"Verify the configuration values match the expected schema",
	"See 'cppx config --help' for configuration options",
}

func loadError(resource string, err error, suggestions ...string) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(resource).
		WithSuggestions(suggestions...).
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("compiler.command", d.Compiler.Command)
	v.SetDefault("compiler.flags", d.Compiler.Flags)
	v.SetDefault("compiler.output", string(d.Compiler.Output))
	v.SetDefault("compiler.stack_unlimited", d.Compiler.StackUnlimited)
	v.SetDefault("runtime", string(d.Runtime))
	v.SetDefault("tty", d.TTY)
	v.SetDefault("marker_name", string(d.MarkerName))
	v.SetDefault("pause", d.Pause)
	v.SetDefault("clear_screen", d.ClearScreen)
	v.SetDefault("clipboard", string(d.Clipboard))
	v.SetDefault("workspace_root", d.WorkspaceRoot)
	v.SetDefault("watch.patterns", d.Watch.Patterns)
	v.SetDefault("watch.ignore", d.Watch.Ignore)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.gitignore", d.Watch.Gitignore)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
	v.SetDefault("ui.verbose", d.UI.Verbose)
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
// The document is decoded to a map because Viper merges maps and most fields are optional.
func loadCUEIntoViper(fsys afero.Fs, v *viper.Viper, path string) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return mergeValidated(v, data, path)
}

// loadTOMLIntoViper decodes a TOML project file, validates it against the
// same CUE schema (JSON is valid CUE) and merges it into v.
func loadTOMLIntoViper(fsys afero.Fs, v *viper.Viper, path string) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("failed to read project file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return fmt.Errorf("%s: %w", path, err)
	}

	asJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return mergeValidated(v, asJSON, path)
}

func mergeValidated(v *viper.Viper, data []byte, path string) error {
	res, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// fileExists checks if a file exists and is not a directory.
func fileExists(fsys afero.Fs, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes the default configuration to path, creating parent
// directories. An existing file is left untouched unless force is set.
func WriteDefault(fsys afero.Fs, path string, force bool) error {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if _, err := fsys.Stat(path); err == nil && !force {
		return fmt.Errorf("%s: %w", path, fs.ErrExist)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := afero.WriteFile(fsys, path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a config.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// cppx configuration file\n\n")

	sb.WriteString("compiler: {\n")
	fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.Compiler.Command)
	fmt.Fprintf(&sb, "\tflags: %s\n", cueList(cfg.Compiler.Flags))
	fmt.Fprintf(&sb, "\toutput: %q\n", cfg.Compiler.Output)
	fmt.Fprintf(&sb, "\tstack_unlimited: %v\n", cfg.Compiler.StackUnlimited)
	sb.WriteString("}\n\n")

	fmt.Fprintf(&sb, "runtime: %q\n", cfg.Runtime)
	fmt.Fprintf(&sb, "tty: %v\n", cfg.TTY)
	fmt.Fprintf(&sb, "marker_name: %q\n", cfg.MarkerName)
	fmt.Fprintf(&sb, "pause: %v\n", cfg.Pause)
	fmt.Fprintf(&sb, "clear_screen: %v\n", cfg.ClearScreen)
	fmt.Fprintf(&sb, "clipboard: %q\n", cfg.Clipboard)
	if cfg.WorkspaceRoot != "" {
		fmt.Fprintf(&sb, "workspace_root: %q\n", cfg.WorkspaceRoot)
	}

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tpatterns: %s\n", cueList(cfg.Watch.Patterns))
	if len(cfg.Watch.Ignore) > 0 {
		fmt.Fprintf(&sb, "\tignore: %s\n", cueList(cfg.Watch.Ignore))
	}
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	fmt.Fprintf(&sb, "\tgitignore: %v\n", cfg.Watch.Gitignore)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
