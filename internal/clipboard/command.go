// SPDX-License-Identifier: MPL-2.0

package clipboard

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type (
	// Command is a clipboard helper program that reads the text from stdin.
	Command struct {
		Name string
		Args []string
	}

	// CommandSink pipes text into a Command.
	CommandSink struct {
		cmd Command
	}
)

// String returns the command line.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// NewCommandSink creates a sink that runs cmd.
func NewCommandSink(cmd Command) *CommandSink {
	return &CommandSink{cmd: cmd}
}

// WriteText runs the helper with text on stdin.
func (s *CommandSink) WriteText(ctx context.Context, text string) error {
	c := exec.CommandContext(ctx, s.cmd.Name, s.cmd.Args...)
	c.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return &WriteError{Sink: s.cmd.Name, Err: err}
	}
	return nil
}

// DetectCommand picks the first installed clipboard helper for env.
// On Linux, wl-copy is preferred under Wayland and clip.exe is tried last for WSL.
func DetectCommand(env Env) (Command, bool) {
	var candidates []Command
	switch env.GOOS {
	case "darwin":
		candidates = []Command{{Name: "pbcopy"}}
	case "windows":
		candidates = []Command{{Name: "clip.exe"}}
	default:
		if env.Getenv("WAYLAND_DISPLAY") != "" {
			candidates = append(candidates, Command{Name: "wl-copy"})
		}
		if env.Getenv("DISPLAY") != "" {
			candidates = append(candidates,
				Command{Name: "xclip", Args: []string{"-selection", "clipboard"}},
				Command{Name: "xsel", Args: []string{"--clipboard", "--input"}},
			)
		}
		candidates = append(candidates, Command{Name: "clip.exe"})
	}

	for _, c := range candidates {
		if path, err := env.LookPath(c.Name); err == nil {
			c.Name = path
			return c, true
		}
	}
	return Command{}, false
}
