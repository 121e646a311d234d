// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/cppx/cppx/internal/build"
	"github.com/cppx/cppx/internal/expand"
	"github.com/cppx/cppx/internal/issue"
	"github.com/cppx/cppx/internal/runtime"
)

// run executes one workflow: clean the marker, build and run, then decide
// success by the marker and copy in RunAndCopy mode.
func (s *Session) run(ctx context.Context, source string, mode Mode, cfg runConfig) *Outcome {
	out := &Outcome{Source: source, Mode: mode}

	abs, err := absSource(source)
	if err != nil {
		out.Err = err
		return out
	}
	out.Source = abs

	s.logger.Infof("[Start] Processing: %s", abs)

	if !s.isFile(abs) {
		s.logger.Errorf("[Error] File not found: %s", abs)
		out.Err = issue.NewErrorContext().
			WithOperation("run").
			WithResource(abs).
			WithSuggestion("Check the path and save the file before running").
			WithIssue(issue.FileNotFoundId).
			Wrap(&expand.FileNotFoundError{Path: abs}).
			BuildError()
		return out
	}

	opts := s.opts.Build
	opts.Source = abs
	marker := opts.MarkerPath()

	compiler := opts.Compiler
	if compiler == "" {
		compiler = build.DefaultCompiler
	}
	if _, err := s.opts.LookPath(compiler); err != nil {
		s.logger.Errorf("[Error] Compiler not found: %s", compiler)
		out.Err = issue.NewErrorContext().
			WithOperation("compile").
			WithResource(compiler).
			WithSuggestion("Install the compiler or set compiler.command in your configuration").
			WithIssue(issue.CompilerNotFoundId).
			Wrap(err).
			BuildError()
		return out
	}

	lock, err := acquireRunLock(ctx, lockFilePath(os.Getenv, marker), func() {
		s.logger.Infof("[Info] Waiting for another cppx run in %s", filepath.Dir(marker))
	})
	if err != nil {
		if ctx.Err() != nil {
			out.Canceled = true
			s.logger.Info("[Info] Run canceled.")
			return out
		}
		s.logger.Warn("Run lock unavailable, continuing without it", "err", err)
	}
	defer lock.Release()

	s.removeMarker(marker)

	script, err := build.Script(opts)
	if err != nil {
		out.Err = err
		return out
	}
	s.logger.Debug("Build script", "runtime", s.opts.Runtime, "workdir", s.workDir(abs), "script", script)

	res := s.opts.Registry.Execute(s.opts.Runtime, &runtime.ExecutionContext{
		Context: ctx,
		Script:  script,
		WorkDir: s.workDir(abs),
		IO:      cfg.io,
		TTY:     s.opts.TTY,
	}, s.opts.Capture)

	out.ExitCode = int(res.ExitCode)
	out.Output = res.Output
	out.ErrOutput = res.ErrOutput

	if ctx.Err() != nil {
		out.Canceled = true
		s.logger.Info("[Info] Run canceled.")
		return out
	}

	s.logger.Debug("Build script finished", "exit", res.ExitCode)

	if res.Error != nil {
		s.logger.Errorf("[Error] %v", res.Error)
		out.Err = runtimeError(s.opts.Runtime, res.Error)
		s.removeMarker(marker)
		return out
	}

	out.Compiled = s.isFile(marker)
	if !out.Compiled {
		s.logger.Info("[Info] Compilation failed. No copy.")
		return out
	}
	defer s.removeMarker(marker)

	if mode != RunAndCopy {
		s.logger.Info("[Info] Copy skipped (justRun mode).")
		return out
	}

	payload, err := s.opts.Expander.Expand(abs, s.opts.WorkspaceRoot)
	if err != nil {
		s.logger.Errorf("[Error] Expand Error: %v", err)
		ctxErr := issue.NewErrorContext().
			WithOperation("expand includes").
			WithResource(abs).
			Wrap(err)
		if errors.Is(err, expand.ErrFileNotFound) {
			ctxErr.WithIssue(issue.FileNotFoundId)
		}
		out.Err = ctxErr.BuildError()
		return out
	}

	if err := s.opts.Clipboard.WriteText(ctx, payload); err != nil {
		s.logger.Errorf("[Error] Clipboard Error: %v", err)
		out.Err = issue.NewErrorContext().
			WithOperation("copy to clipboard").
			WithSuggestion("Set clipboard: \"osc52\" in your configuration when no clipboard helper is installed").
			WithIssue(issue.ClipboardUnavailableId).
			Wrap(err).
			BuildError()
		return out
	}

	out.Payload = payload
	out.Copied = true
	s.logger.Info("[Success] Copied (Compile Succeeded).")
	return out
}

func runtimeError(typ runtime.RuntimeType, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("run build script").
		WithResource(typ.String()).
		Wrap(err)
	switch {
	case errors.Is(err, runtime.ErrShellNotFound):
		ctx.WithIssue(issue.ShellNotFoundId)
	case errors.Is(err, runtime.ErrRuntimeNotAvailable), errors.Is(err, runtime.ErrRuntimeNotRegistered):
		ctx.WithIssue(issue.RuntimeNotAvailableId)
	}
	return ctx.BuildError()
}
