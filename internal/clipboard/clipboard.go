// SPDX-License-Identifier: MPL-2.0

package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/cppx/cppx/internal/config"
)

var (
	// ErrClipboardWrite is the sentinel error wrapped by WriteError.
	ErrClipboardWrite = errors.New("clipboard write failed")
	// ErrNoClipboardCommand is returned when command mode finds no helper program.
	ErrNoClipboardCommand = errors.New("no clipboard command found")
)

type (
	// Sink receives the text to place on the clipboard.
	Sink interface {
		WriteText(ctx context.Context, text string) error
	}

	// WriteError is returned when a sink fails to write.
	WriteError struct {
		Sink string
		Err  error
	}

	discardSink struct{}

	// fallbackSink writes to primary and uses fallback when primary fails.
	fallbackSink struct {
		primary  Sink
		fallback Sink
	}

	// Env abstracts the process environment for sink detection.
	Env struct {
		GOOS     string
		Getenv   func(string) string
		LookPath func(string) (string, error)
	}
)

// Discard drops all text.
var Discard Sink = discardSink{}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("clipboard write via %s: %v", e.Sink, e.Err)
}

// Unwrap returns ErrClipboardWrite and the underlying error.
func (e *WriteError) Unwrap() []error { return []error{ErrClipboardWrite, e.Err} }

func (discardSink) WriteText(context.Context, string) error { return nil }

func (s *fallbackSink) WriteText(ctx context.Context, text string) error {
	if err := s.primary.WriteText(ctx, text); err != nil {
		if fbErr := s.fallback.WriteText(ctx, text); fbErr != nil {
			return errors.Join(err, fbErr)
		}
	}
	return nil
}

// HostEnv returns the Env of the running process.
func HostEnv() Env {
	return Env{GOOS: runtime.GOOS, Getenv: os.Getenv, LookPath: exec.LookPath}
}

// New returns the sink for mode. OSC 52 sequences are written to tty.
//
//   - auto: a clipboard command when one is installed, falling back to OSC 52
//   - command: a clipboard command; ErrNoClipboardCommand when none is found
//   - osc52: the terminal escape sequence only
//   - none: Discard
func New(mode config.ClipboardMode, tty io.Writer, env Env) (Sink, error) {
	switch mode {
	case config.ClipboardNone:
		return Discard, nil
	case config.ClipboardOSC52:
		return NewOSC52Sink(tty, env.Getenv), nil
	case config.ClipboardCommand:
		cmd, ok := DetectCommand(env)
		if !ok {
			return nil, ErrNoClipboardCommand
		}
		return NewCommandSink(cmd), nil
	case config.ClipboardAuto, "":
		osc := NewOSC52Sink(tty, env.Getenv)
		if cmd, ok := DetectCommand(env); ok {
			return &fallbackSink{primary: NewCommandSink(cmd), fallback: osc}, nil
		}
		return osc, nil
	default:
		return nil, &config.InvalidClipboardModeError{Value: mode}
	}
}
