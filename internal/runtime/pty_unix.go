// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package runtime

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// runWithPTY runs cmd attached to a new pseudo-terminal, relaying ctx.IO to
// it. When stdin is a terminal it is put in raw mode for the duration.
func runWithPTY(ctx *ExecutionContext, cmd *exec.Cmd) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start pseudo-terminal: %w", err)
	}
	defer ptmx.Close() //nolint:errcheck // best-effort cleanup

	if f, ok := ctx.IO.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_ = pty.InheritSize(f, ptmx) // keep the default size if this fails
		if state, rawErr := term.MakeRaw(int(f.Fd())); rawErr == nil {
			defer term.Restore(int(f.Fd()), state) //nolint:errcheck // best-effort restore
		}
	}

	if ctx.IO.Stdin != nil {
		go func() { _, _ = io.Copy(ptmx, ctx.IO.Stdin) }()
	}

	// Reading the master returns EIO once the child side closes.
	if _, copyErr := io.Copy(ctx.IO.Stdout, ptmx); copyErr != nil && !errors.Is(copyErr, syscall.EIO) {
		_ = cmd.Wait()
		return fmt.Errorf("relay pseudo-terminal output: %w", copyErr)
	}

	return cmd.Wait()
}
