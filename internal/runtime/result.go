// SPDX-License-Identifier: MPL-2.0

package runtime

import "github.com/cppx/cppx/pkg/types"

// NewErrorResult creates a Result with the given exit code and error.
func NewErrorResult(code types.ExitCode, err error) *Result {
	return &Result{ExitCode: code, Error: err}
}

// NewExitCodeResult creates a Result with the given exit code and no error.
// Use this for non-zero exits that represent normal process termination
// rather than infrastructure failures.
func NewExitCodeResult(code int) *Result {
	return &Result{ExitCode: normalizeExitCode(code)}
}

// normalizeExitCode maps process exit codes outside 0-255, such as the -1
// reported for signal-terminated processes, to a generic failure code.
func normalizeExitCode(code int) types.ExitCode {
	ec := types.ExitCode(code)
	if ec.Validate() != nil {
		return 1
	}
	return ec
}
