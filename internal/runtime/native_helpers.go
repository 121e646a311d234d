// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

type (
	// executeOutput configures where script output is directed during execution.
	// It abstracts the difference between streaming (to ctx.IO) and capturing
	// (to bytes.Buffer) execution modes.
	executeOutput struct {
		stdout io.Writer
		stderr io.Writer
	}

	// capturedOutput holds the captured stdout and stderr buffers when capture mode is used.
	capturedOutput struct {
		stdout bytes.Buffer
		stderr bytes.Buffer
	}
)

// newStreamingOutput creates an output configuration that streams to the provided writers.
func newStreamingOutput(stdout, stderr io.Writer) *executeOutput {
	return &executeOutput{stdout: stdout, stderr: stderr}
}

// newCapturingOutput creates an output configuration that captures to internal buffers.
func newCapturingOutput() (*executeOutput, *capturedOutput) {
	captured := &capturedOutput{}
	return &executeOutput{
		stdout: &captured.stdout,
		stderr: &captured.stderr,
	}, captured
}

// extractExitCode converts the error returned by exec.Cmd.Run/Wait into a Result.
// A non-zero exit is a normal outcome, not an error.
func extractExitCode(err error, captured *capturedOutput) *Result {
	result := &Result{}
	if captured != nil {
		result.Output = captured.stdout.String()
		result.ErrOutput = captured.stderr.String()
	}

	if err == nil {
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = normalizeExitCode(exitErr.ExitCode())
		return result
	}

	result.ExitCode = 1
	result.Error = fmt.Errorf("failed to execute script: %w", err)
	return result
}
