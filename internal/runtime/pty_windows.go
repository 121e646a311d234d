// SPDX-License-Identifier: MPL-2.0

//go:build windows

package runtime

import (
	"errors"
	"os/exec"
)

// ErrPTYUnsupported is returned when TTY mode is requested on Windows.
var ErrPTYUnsupported = errors.New("pseudo-terminal mode is not supported on Windows")

func runWithPTY(_ *ExecutionContext, _ *exec.Cmd) error {
	return ErrPTYUnsupported
}
