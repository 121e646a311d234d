// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/cppx/cppx/pkg/types"
)

// Runtime type constants for the supported execution environments.
const (
	RuntimeTypeNative  RuntimeType = "native"
	RuntimeTypeVirtual RuntimeType = "virtual"
)

var (
	// ErrEmptyScript is returned by Validate when there is nothing to execute.
	ErrEmptyScript = errors.New("script has no content to execute")
	// ErrRuntimeNotRegistered is returned when a runtime type has no registered implementation.
	ErrRuntimeNotRegistered = errors.New("runtime not registered")
	// ErrRuntimeNotAvailable is returned when a registered runtime cannot run on this system.
	ErrRuntimeNotAvailable = errors.New("runtime not available")
)

type (
	// IOContext holds the standard streams of an execution.
	IOContext struct {
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// ExecutionContext contains all information needed to execute a script.
	ExecutionContext struct {
		// Context is the Go context for cancellation. Cancelling it terminates the execution.
		Context context.Context
		// Script is the POSIX shell script to run.
		Script string
		// WorkDir is the working directory. Empty means the current directory.
		WorkDir string
		// ExtraEnv holds KEY=VALUE pairs appended to the host environment.
		ExtraEnv []string
		// IO holds the standard streams.
		IO IOContext
		// TTY attaches the script to a pseudo-terminal when the runtime supports it.
		TTY bool
	}

	// Result contains the result of a script execution.
	Result struct {
		// ExitCode is the exit status of the shell.
		ExitCode types.ExitCode
		// Error contains any error that prevented the script from running to completion.
		Error error
		// Output contains captured stdout (if captured).
		Output string
		// ErrOutput contains captured stderr (if captured).
		ErrOutput string
	}

	// Runtime defines the interface for script execution.
	Runtime interface {
		// Name returns the runtime name.
		Name() string
		// Execute runs a script in this runtime.
		Execute(ctx *ExecutionContext) *Result
		// Available returns whether this runtime is available on the current system.
		Available() bool
		// Validate checks if a script can be executed with this runtime.
		Validate(ctx *ExecutionContext) error
	}

	// CapturingRuntime is implemented by runtimes that support capturing output.
	CapturingRuntime interface {
		// ExecuteCapture runs a script and captures stdout/stderr.
		ExecuteCapture(ctx *ExecutionContext) *Result
	}

	// RuntimeType identifies the type of runtime.
	//
	//nolint:revive // RuntimeType is more descriptive than Type for external callers
	RuntimeType string

	// Registry holds all available runtimes.
	Registry struct {
		runtimes map[RuntimeType]Runtime
	}
)

// NewExecutionContext creates an execution context wired to the process's standard streams.
func NewExecutionContext(ctx context.Context, script, workDir string) *ExecutionContext {
	return &ExecutionContext{
		Context: ctx,
		Script:  script,
		WorkDir: workDir,
		IO: IOContext{
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
		},
	}
}

// Success returns true if the script executed successfully.
func (r *Result) Success() bool {
	return r.ExitCode.IsSuccess() && r.Error == nil
}

// NewRegistry creates a new runtime registry.
func NewRegistry() *Registry {
	return &Registry{
		runtimes: make(map[RuntimeType]Runtime),
	}
}

// NewDefaultRegistry creates a registry with the native and virtual runtimes registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(RuntimeTypeNative, NewNativeRuntime())
	r.Register(RuntimeTypeVirtual, NewVirtualRuntime())
	return r
}

// Register adds a runtime to the registry.
func (r *Registry) Register(typ RuntimeType, rt Runtime) {
	r.runtimes[typ] = rt
}

// Get returns a runtime by type.
func (r *Registry) Get(typ RuntimeType) (Runtime, error) {
	rt, ok := r.runtimes[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuntimeNotRegistered, typ)
	}
	return rt, nil
}

// Available returns all available runtimes, sorted by name.
func (r *Registry) Available() []RuntimeType {
	var available []RuntimeType
	for typ, rt := range r.runtimes {
		if rt.Available() {
			available = append(available, typ)
		}
	}
	slices.Sort(available)
	return available
}

// Execute runs the script with the runtime of the given type. When capture is
// true and the runtime supports it, output is captured instead of streamed.
func (r *Registry) Execute(typ RuntimeType, ctx *ExecutionContext, capture bool) *Result {
	rt, err := r.Get(typ)
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	if !rt.Available() {
		return &Result{
			ExitCode: 1,
			Error:    fmt.Errorf("%w: %s", ErrRuntimeNotAvailable, rt.Name()),
		}
	}

	if err := rt.Validate(ctx); err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	if capture {
		if cr, ok := rt.(CapturingRuntime); ok {
			return cr.ExecuteCapture(ctx)
		}
	}
	return rt.Execute(ctx)
}

// String returns the string representation of the RuntimeType.
func (t RuntimeType) String() string { return string(t) }

// validateScript is shared by the runtime implementations.
func validateScript(ctx *ExecutionContext) error {
	if strings.TrimSpace(ctx.Script) == "" {
		return ErrEmptyScript
	}
	return nil
}

// execContext returns ctx.Context, defaulting to context.Background.
func execContext(ctx *ExecutionContext) context.Context {
	if ctx.Context == nil {
		return context.Background()
	}
	return ctx.Context
}
