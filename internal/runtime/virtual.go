// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualRuntime executes scripts with the embedded mvdan/sh interpreter.
// External commands such as the compiler still run as host processes.
type VirtualRuntime struct{}

// NewVirtualRuntime creates a new virtual runtime.
func NewVirtualRuntime() *VirtualRuntime {
	return &VirtualRuntime{}
}

// Name returns the runtime name.
func (r *VirtualRuntime) Name() string {
	return string(RuntimeTypeVirtual)
}

// Available returns whether this runtime is available.
// The virtual runtime is built in and always available.
func (r *VirtualRuntime) Available() bool {
	return true
}

// Validate checks that the script is non-empty and parses.
func (r *VirtualRuntime) Validate(ctx *ExecutionContext) error {
	if err := validateScript(ctx); err != nil {
		return err
	}
	if _, err := parseScript(ctx.Script); err != nil {
		return err
	}
	return nil
}

// Execute runs the script with its output streamed to ctx.IO.
func (r *VirtualRuntime) Execute(ctx *ExecutionContext) *Result {
	out := newStreamingOutput(ctx.IO.Stdout, ctx.IO.Stderr)
	return r.run(ctx, ctx.IO.Stdin, out, nil)
}

// ExecuteCapture runs the script and captures its output.
func (r *VirtualRuntime) ExecuteCapture(ctx *ExecutionContext) *Result {
	out, captured := newCapturingOutput()
	return r.run(ctx, ctx.IO.Stdin, out, captured)
}

func (r *VirtualRuntime) run(ctx *ExecutionContext, stdin io.Reader, out *executeOutput, captured *capturedOutput) *Result {
	prog, err := parseScript(ctx.Script)
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	workDir := ctx.WorkDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return &Result{ExitCode: 1, Error: fmt.Errorf("failed to determine working directory: %w", err)}
		}
	}

	env := append(os.Environ(), ctx.ExtraEnv...)
	runner, err := interp.New(
		interp.Dir(workDir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(stdin, out.stdout, out.stderr),
	)
	if err != nil {
		return &Result{ExitCode: 1, Error: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	result := &Result{}
	err = runner.Run(execContext(ctx), prog)
	if captured != nil {
		result.Output = captured.stdout.String()
		result.ErrOutput = captured.stderr.String()
	}
	if err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			result.ExitCode = normalizeExitCode(int(exitStatus))
			return result
		}
		result.ExitCode = 1
		result.Error = fmt.Errorf("script execution failed: %w", err)
	}
	return result
}

func parseScript(script string) (*syntax.File, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "script")
	if err != nil {
		return nil, fmt.Errorf("script syntax error: %w", err)
	}
	return prog, nil
}
