// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cppx/cppx/pkg/types"
)

// ExitError carries the process status of a cppx command out of its RunE
// handler. A run exits 1 when the source did not compile, the run was
// canceled, or an error was reported; the compiled program's own exit status
// is only logged.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cppx exited with status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// silentExit marks cmd's failure as already reported and returns the
// ExitError that root's error handler turns into the exit status.
func silentExit(cmd *cobra.Command, code types.ExitCode, err error) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: code, Err: err}
}
