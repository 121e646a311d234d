// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/cppx/cppx/internal/build"
	"github.com/cppx/cppx/internal/clipboard"
	"github.com/cppx/cppx/internal/expand"
	"github.com/cppx/cppx/internal/runtime"
)

const (
	// JustRun compiles and runs without copying.
	JustRun Mode = iota
	// RunAndCopy also copies the expanded source when compilation succeeds.
	RunAndCopy
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("session closed")

type (
	// Mode selects whether a successful run copies the expanded source.
	Mode int

	// Options configures a Session.
	Options struct {
		// Registry provides the runtimes. Nil means runtime.NewDefaultRegistry.
		Registry *runtime.Registry
		// Runtime selects the runtime. Empty means native.
		Runtime runtime.RuntimeType
		// Build is the script template; Source is filled in per run.
		Build build.Options
		// WorkspaceRoot is the include fallback and build working directory.
		// Empty means the source file's directory is used for both.
		WorkspaceRoot string
		// TTY attaches native runs to a pseudo-terminal.
		TTY bool
		// Capture collects program output into the Outcome instead of streaming it.
		Capture bool
		// IO holds the streams of streamed runs.
		IO runtime.IOContext
		// Expander inlines includes. Nil means expand.New over Fs.
		Expander *expand.Expander
		// Clipboard receives the payload. Nil means clipboard.Discard.
		Clipboard clipboard.Sink
		// Logger receives the session log. Nil discards it.
		Logger *log.Logger
		// Fs is used for marker files. Nil means the OS filesystem.
		Fs afero.Fs
		// LookPath checks that the compiler exists. Nil means exec.LookPath.
		LookPath func(string) (string, error)
		// OnComplete is called with the outcome of every run, including
		// canceled ones, before Execution.Done is closed.
		OnComplete func(*Outcome)
	}

	// Outcome reports a finished run.
	Outcome struct {
		// Source is the absolute source path.
		Source string
		// Mode is the requested mode.
		Mode Mode
		// Compiled is true when the marker file existed after the run.
		Compiled bool
		// Copied is true when the payload reached the clipboard sink.
		Copied bool
		// Canceled is true when a newer run or Close superseded this one.
		Canceled bool
		// ExitCode is the exit status of the build script, for information only.
		ExitCode int
		// Payload is the expanded source in RunAndCopy mode.
		Payload string
		// Output and ErrOutput hold captured program output.
		Output    string
		ErrOutput string
		// Err is the failure that stopped the run, if any. A failed
		// compilation is not an error.
		Err error
	}

	// Execution is a run in progress.
	Execution struct {
		cancel  context.CancelFunc
		done    chan struct{}
		outcome *Outcome
	}

	// RunOption adjusts a single run.
	RunOption func(*runConfig)

	runConfig struct {
		io runtime.IOContext
	}

	// Session serializes runs. It is safe for concurrent use.
	Session struct {
		opts    Options
		fs      afero.Fs
		logger  *log.Logger
		mu      sync.Mutex
		current *Execution
		closed  bool
	}
)

// String returns "justRun" or "runAndCopy".
func (m Mode) String() string {
	if m == RunAndCopy {
		return "runAndCopy"
	}
	return "justRun"
}

// New creates a Session.
func New(opts Options) *Session {
	if opts.Registry == nil {
		opts.Registry = runtime.NewDefaultRegistry()
	}
	if opts.Runtime == "" {
		opts.Runtime = runtime.RuntimeTypeNative
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Expander == nil {
		opts.Expander = expand.New(expand.WithFs(opts.Fs), expand.WithLogger(opts.Logger))
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.Discard
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	return &Session{opts: opts, fs: opts.Fs, logger: opts.Logger}
}

// WithStdin feeds r to the program instead of the session's stdin.
func WithStdin(r io.Reader) RunOption {
	return func(c *runConfig) {
		c.io.Stdin = r
	}
}

// Start begins a run of source in the background. A run already in progress
// is canceled and waited for first.
func (s *Session) Start(ctx context.Context, source string, mode Mode, opts ...RunOption) (*Execution, error) {
	cfg := runConfig{io: s.opts.IO}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if prev := s.current; prev != nil {
		prev.cancel()
		<-prev.done
	}

	runCtx, cancel := context.WithCancel(ctx)
	e := &Execution{cancel: cancel, done: make(chan struct{})}
	s.current = e

	go func() {
		defer close(e.done)
		defer cancel()
		e.outcome = s.run(runCtx, source, mode, cfg)
		if s.opts.OnComplete != nil {
			s.opts.OnComplete(e.outcome)
		}
	}()

	return e, nil
}

// Run starts a run and waits for it.
func (s *Session) Run(ctx context.Context, source string, mode Mode, opts ...RunOption) (*Outcome, error) {
	e, err := s.Start(ctx, source, mode, opts...)
	if err != nil {
		return nil, err
	}
	return e.Wait(), nil
}

// Close cancels the current run, waits for it and rejects further runs.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.current != nil {
		s.current.cancel()
		<-s.current.done
		s.current = nil
	}
	return nil
}

// Wait blocks until the run finishes and returns its outcome.
func (e *Execution) Wait() *Outcome {
	<-e.done
	return e.outcome
}

// Done is closed when the run finishes.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// Cancel stops the run.
func (e *Execution) Cancel() {
	e.cancel()
}

func (s *Session) workDir(source string) string {
	if s.opts.WorkspaceRoot != "" {
		return s.opts.WorkspaceRoot
	}
	return filepath.Dir(source)
}

func (s *Session) removeMarker(path string) {
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Could not remove marker file", "path", path, "err", err)
	}
}

func (s *Session) isFile(path string) bool {
	info, err := s.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// absSource resolves source against the working directory.
func absSource(source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("resolve source path %s: %w", source, err)
	}
	return abs, nil
}
