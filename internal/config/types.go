// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cppx/cppx/internal/build"
)

const (
	// RuntimeNative runs the build script with the host shell.
	RuntimeNative RuntimeMode = "native"
	// RuntimeVirtual runs the build script with the embedded mvdan/sh interpreter.
	RuntimeVirtual RuntimeMode = "virtual"

	// ClipboardAuto tries a clipboard command and falls back to OSC 52.
	ClipboardAuto ClipboardMode = "auto"
	// ClipboardCommand uses pbcopy, wl-copy, xclip, xsel or clip.exe.
	ClipboardCommand ClipboardMode = "command"
	// ClipboardOSC52 writes the terminal escape sequence.
	ClipboardOSC52 ClipboardMode = "osc52"
	// ClipboardNone discards copied text.
	ClipboardNone ClipboardMode = "none"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidRuntimeMode is returned when a RuntimeMode value is not recognized.
	ErrInvalidRuntimeMode = errors.New("invalid runtime mode")
	// ErrInvalidClipboardMode is returned when a ClipboardMode value is not recognized.
	ErrInvalidClipboardMode = errors.New("invalid clipboard mode")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidFileName is the sentinel error wrapped by InvalidFileNameError.
	ErrInvalidFileName = errors.New("invalid file name")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// RuntimeMode selects how the build script is executed.
	RuntimeMode string

	// InvalidRuntimeModeError is returned when a RuntimeMode value is not recognized.
	InvalidRuntimeModeError struct {
		Value RuntimeMode
	}

	// ClipboardMode selects the clipboard sink.
	ClipboardMode string

	// InvalidClipboardModeError is returned when a ClipboardMode value is not recognized.
	InvalidClipboardModeError struct {
		Value ClipboardMode
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// MarkerFileName is the name of the compile-success marker file.
	// It is a bare file name placed next to the source file.
	MarkerFileName string

	// BinaryName is the name of the compiled executable, written to the
	// build working directory.
	BinaryName string

	// InvalidFileNameError is returned when a MarkerFileName or BinaryName is
	// empty or contains a path separator.
	InvalidFileNameError struct {
		Field string
		Value string
	}

	// InvalidConfigError collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		Compiler CompilerConfig `json:"compiler" mapstructure:"compiler"`
		// Runtime is the default runtime for the build script.
		Runtime RuntimeMode `json:"runtime" mapstructure:"runtime"`
		// TTY attaches native runs to a pseudo-terminal.
		TTY bool `json:"tty" mapstructure:"tty"`
		// MarkerName is the compile-success marker file name.
		MarkerName MarkerFileName `json:"marker_name" mapstructure:"marker_name"`
		// Pause waits for Enter after the program exits.
		Pause bool `json:"pause" mapstructure:"pause"`
		// ClearScreen clears the terminal before compiling.
		ClearScreen bool `json:"clear_screen" mapstructure:"clear_screen"`
		// Clipboard selects the clipboard sink.
		Clipboard ClipboardMode `json:"clipboard" mapstructure:"clipboard"`
		// WorkspaceRoot is the fallback directory for quoted includes and
		// the build working directory. Empty disables the fallback.
		WorkspaceRoot string `json:"workspace_root" mapstructure:"workspace_root"`
		Watch         WatchConfig `json:"watch" mapstructure:"watch"`
		UI            UIConfig    `json:"ui" mapstructure:"ui"`
	}

	// CompilerConfig configures the compile step.
	CompilerConfig struct {
		Command        string     `json:"command" mapstructure:"command"`
		Flags          []string   `json:"flags" mapstructure:"flags"`
		Output         BinaryName `json:"output" mapstructure:"output"`
		StackUnlimited bool       `json:"stack_unlimited" mapstructure:"stack_unlimited"`
	}

	// WatchConfig configures `cppx watch`.
	WatchConfig struct {
		// Patterns are doublestar globs relative to the watched root.
		Patterns []string `json:"patterns" mapstructure:"patterns"`
		// Ignore are extra doublestar globs to exclude.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
		// Debounce is the quiet period before a change triggers a run.
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Gitignore applies the root's .gitignore rules.
		Gitignore bool `json:"gitignore" mapstructure:"gitignore"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
	}
)

// String returns the string representation of the RuntimeMode.
func (m RuntimeMode) String() string { return string(m) }

// IsValid returns whether the RuntimeMode is native or virtual.
func (m RuntimeMode) IsValid() (bool, []error) {
	switch m {
	case RuntimeNative, RuntimeVirtual:
		return true, nil
	default:
		return false, []error{&InvalidRuntimeModeError{Value: m}}
	}
}

// Error implements the error interface.
func (e *InvalidRuntimeModeError) Error() string {
	return fmt.Sprintf("invalid runtime mode %q (valid: native, virtual)", e.Value)
}

// Unwrap returns ErrInvalidRuntimeMode for errors.Is() compatibility.
func (e *InvalidRuntimeModeError) Unwrap() error { return ErrInvalidRuntimeMode }

// String returns the string representation of the ClipboardMode.
func (m ClipboardMode) String() string { return string(m) }

// IsValid returns whether the ClipboardMode is one of the defined modes.
func (m ClipboardMode) IsValid() (bool, []error) {
	switch m {
	case ClipboardAuto, ClipboardCommand, ClipboardOSC52, ClipboardNone:
		return true, nil
	default:
		return false, []error{&InvalidClipboardModeError{Value: m}}
	}
}

// Error implements the error interface.
func (e *InvalidClipboardModeError) Error() string {
	return fmt.Sprintf("invalid clipboard mode %q (valid: auto, command, osc52, none)", e.Value)
}

// Unwrap returns ErrInvalidClipboardMode for errors.Is() compatibility.
func (e *InvalidClipboardModeError) Unwrap() error { return ErrInvalidClipboardMode }

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// IsValid returns whether the ColorScheme is one of the defined schemes.
func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the MarkerFileName.
func (n MarkerFileName) String() string { return string(n) }

// IsValid returns whether the name is a bare, non-empty file name.
func (n MarkerFileName) IsValid() (bool, []error) {
	return validateFileName("marker_name", string(n))
}

// String returns the string representation of the BinaryName.
func (n BinaryName) String() string { return string(n) }

// IsValid returns whether the name is a bare, non-empty file name.
func (n BinaryName) IsValid() (bool, []error) {
	return validateFileName("compiler.output", string(n))
}

func validateFileName(field, value string) (bool, []error) {
	if strings.TrimSpace(value) == "" || strings.ContainsAny(value, `/\`) || value == "." || value == ".." {
		return false, []error{&InvalidFileNameError{Field: field, Value: value}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidFileNameError) Error() string {
	return fmt.Sprintf("%s: invalid file name %q (must be a bare file name)", e.Field, e.Value)
}

// Unwrap returns ErrInvalidFileName for errors.Is() compatibility.
func (e *InvalidFileNameError) Unwrap() error { return ErrInvalidFileName }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so errors.Is
// matches both the sentinel and each field's own sentinel.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Validate checks every typed field and the values CUE cannot express.
func (c *Config) Validate() error {
	var errs []error
	collect := func(_ bool, fieldErrs []error) {
		errs = append(errs, fieldErrs...)
	}

	collect(c.Runtime.IsValid())
	collect(c.Clipboard.IsValid())
	collect(c.UI.ColorScheme.IsValid())
	collect(c.MarkerName.IsValid())
	collect(c.Compiler.Output.IsValid())

	if strings.TrimSpace(c.Compiler.Command) == "" {
		errs = append(errs, errors.New("compiler.command: must not be empty"))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce: must not be negative, got %s", c.Watch.Debounce))
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{
			Command:        build.DefaultCompiler,
			Flags:          slices.Clone(build.DefaultFlags),
			Output:         build.DefaultOutput,
			StackUnlimited: true,
		},
		Runtime:     RuntimeNative,
		MarkerName:  build.DefaultMarkerName,
		Pause:       true,
		ClearScreen: true,
		Clipboard:   ClipboardAuto,
		Watch: WatchConfig{
			Patterns:  []string{"**/*.cpp", "**/*.cc", "**/*.h", "**/*.hpp"},
			Debounce:  300 * time.Millisecond,
			Gitignore: true,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}
