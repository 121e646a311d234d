// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait blocks on I/O after the shell was killed.
const waitDelay = 2 * time.Second

// ErrShellNotFound is returned when no POSIX shell can be located.
var ErrShellNotFound = errors.New("no POSIX shell found")

// posixShells are the shells searched on PATH, in order.
var posixShells = []string{"bash", "sh"}

// NativeRuntime executes scripts using the host's POSIX shell.
type NativeRuntime struct {
	// Shell overrides the detected shell.
	Shell string

	lookPath func(string) (string, error)
}

// NewNativeRuntime creates a new native runtime.
func NewNativeRuntime() *NativeRuntime {
	return &NativeRuntime{}
}

// Name returns the runtime name.
func (r *NativeRuntime) Name() string {
	return string(RuntimeTypeNative)
}

// Available returns whether a shell can be found.
func (r *NativeRuntime) Available() bool {
	_, err := r.getShell()
	return err == nil
}

// Validate checks if a script can be executed.
func (r *NativeRuntime) Validate(ctx *ExecutionContext) error {
	return validateScript(ctx)
}

// Execute runs the script with its output streamed to ctx.IO. With ctx.TTY
// set, the shell runs attached to a pseudo-terminal.
func (r *NativeRuntime) Execute(ctx *ExecutionContext) *Result {
	cmd, err := r.command(ctx)
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	if ctx.TTY {
		return extractExitCode(runWithPTY(ctx, cmd), nil)
	}

	out := newStreamingOutput(ctx.IO.Stdout, ctx.IO.Stderr)
	cmd.Stdin = ctx.IO.Stdin
	cmd.Stdout = out.stdout
	cmd.Stderr = out.stderr

	return extractExitCode(cmd.Run(), nil)
}

// ExecuteCapture runs the script and captures its output.
func (r *NativeRuntime) ExecuteCapture(ctx *ExecutionContext) *Result {
	cmd, err := r.command(ctx)
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	out, captured := newCapturingOutput()
	cmd.Stdin = ctx.IO.Stdin
	cmd.Stdout = out.stdout
	cmd.Stderr = out.stderr

	return extractExitCode(cmd.Run(), captured)
}

// command builds the shell invocation for ctx.
func (r *NativeRuntime) command(ctx *ExecutionContext) (*exec.Cmd, error) {
	shell, err := r.getShell()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(execContext(ctx), shell, "-c", ctx.Script)
	cmd.WaitDelay = waitDelay
	if ctx.WorkDir != "" {
		cmd.Dir = ctx.WorkDir
	}
	cmd.Env = append(os.Environ(), ctx.ExtraEnv...)
	return cmd, nil
}

// getShell determines which shell runs the script. Scripts are POSIX, so the
// login shell in $SHELL is never used; it may be fish or nushell.
func (r *NativeRuntime) getShell() (string, error) {
	if r.Shell != "" {
		return r.Shell, nil
	}

	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	// On Windows this finds Git Bash, MSYS2 or WSL shims when on PATH.
	for _, name := range posixShells {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (install bash or sh)", ErrShellNotFound)
}
