// SPDX-License-Identifier: MPL-2.0

package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cppx/cppx/internal/build"
	"github.com/cppx/cppx/internal/issue"
	"github.com/cppx/cppx/internal/runtime"
)

const fakeRuntime runtime.RuntimeType = "fake"

// funcRuntime runs fn instead of a shell.
type funcRuntime struct {
	fn func(*runtime.ExecutionContext) *runtime.Result
}

func (f *funcRuntime) Name() string                                        { return string(fakeRuntime) }
func (f *funcRuntime) Available() bool                                     { return true }
func (f *funcRuntime) Validate(*runtime.ExecutionContext) error            { return nil }
func (f *funcRuntime) Execute(c *runtime.ExecutionContext) *runtime.Result { return f.fn(c) }

type recordingSink struct {
	mu   sync.Mutex
	err  error
	text []string
}

func (r *recordingSink) WriteText(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.text = append(r.text, text)
	return nil
}

func (r *recordingSink) writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.text...)
}

type fixture struct {
	dir    string
	source string
	marker string
	sink   *recordingSink
	log    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		dir:    dir,
		source: filepath.Join(dir, "main.cpp"),
		marker: filepath.Join(dir, build.DefaultMarkerName),
		sink:   &recordingSink{},
		log:    &bytes.Buffer{},
	}
	f.write(t, "a.h", "int a;\n")
	f.write(t, "main.cpp", "#include \"a.h\"\nint main() {}\n")
	return f
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// session builds a Session whose runtime calls fn.
func (f *fixture) session(fn func(*runtime.ExecutionContext) *runtime.Result) *Session {
	reg := runtime.NewRegistry()
	reg.Register(fakeRuntime, &funcRuntime{fn: fn})
	return New(Options{
		Registry:  reg,
		Runtime:   fakeRuntime,
		Clipboard: f.sink,
		Logger:    log.New(f.log),
		LookPath:  func(name string) (string, error) { return "/usr/bin/" + name, nil },
	})
}

// compiles simulates a successful compile by touching the marker.
func (f *fixture) compiles(t *testing.T, exitCode int) func(*runtime.ExecutionContext) *runtime.Result {
	return func(*runtime.ExecutionContext) *runtime.Result {
		if err := os.WriteFile(f.marker, nil, 0o644); err != nil {
			t.Errorf("touch marker: %v", err)
		}
		return runtime.NewExitCodeResult(exitCode)
	}
}

func failsToCompile(*runtime.ExecutionContext) *runtime.Result {
	return runtime.NewExitCodeResult(1)
}

func assertNoMarker(t *testing.T, f *fixture) {
	t.Helper()
	if _, err := os.Stat(f.marker); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("marker should be removed, stat error = %v", err)
	}
}

func TestRunAndCopySuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	s := f.session(f.compiles(t, 0))

	out, err := s.Run(context.Background(), f.source, RunAndCopy)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if out.Err != nil {
		t.Fatalf("outcome error: %v", out.Err)
	}
	if !out.Compiled || !out.Copied {
		t.Errorf("Compiled/Copied = %v/%v, want true/true", out.Compiled, out.Copied)
	}

	want := "// #include \"a.h\"\nint a;\n\nint main() {}\n"
	if out.Payload != want {
		t.Errorf("Payload = %q, want %q", out.Payload, want)
	}
	if got := f.sink.writes(); len(got) != 1 || got[0] != want {
		t.Errorf("clipboard writes = %q", got)
	}
	assertNoMarker(t, f)

	logs := f.log.String()
	for _, line := range []string{"[Start] Processing: " + f.source, "[Success] Copied (Compile Succeeded)."} {
		if !strings.Contains(logs, line) {
			t.Errorf("log missing %q:\n%s", line, logs)
		}
	}
}

func TestRunProgramFailureStillCompiled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	s := f.session(f.compiles(t, 139))

	out, _ := s.Run(context.Background(), f.source, RunAndCopy)
	if !out.Compiled || !out.Copied {
		t.Errorf("a crashing program is still compiled: Compiled/Copied = %v/%v", out.Compiled, out.Copied)
	}
	if out.ExitCode != 139 {
		t.Errorf("ExitCode = %d, want 139", out.ExitCode)
	}
}

func TestJustRunSkipsCopy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	s := f.session(f.compiles(t, 0))

	out, _ := s.Run(context.Background(), f.source, JustRun)
	if !out.Compiled || out.Copied || out.Payload != "" {
		t.Errorf("outcome = %+v, want compiled without copy", out)
	}
	if len(f.sink.writes()) != 0 {
		t.Error("justRun must not write to the clipboard")
	}
	assertNoMarker(t, f)
	if !strings.Contains(f.log.String(), "[Info] Copy skipped (justRun mode).") {
		t.Errorf("log missing skip line:\n%s", f.log)
	}
}

func TestCompileFailureNoCopy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// A marker left over from an earlier run must not count as success.
	f.write(t, build.DefaultMarkerName, "")
	s := f.session(failsToCompile)

	out, _ := s.Run(context.Background(), f.source, RunAndCopy)
	if out.Compiled || out.Copied || out.Err != nil {
		t.Errorf("outcome = %+v, want failed compile without error", out)
	}
	if len(f.sink.writes()) != 0 {
		t.Error("failed compile must not write to the clipboard")
	}
	if !strings.Contains(f.log.String(), "[Info] Compilation failed. No copy.") {
		t.Errorf("log missing failure line:\n%s", f.log)
	}
}

func TestClipboardFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.sink.err = errors.New("xclip: can't open display")
	s := f.session(f.compiles(t, 0))

	out, _ := s.Run(context.Background(), f.source, RunAndCopy)
	if !out.Compiled || out.Copied {
		t.Errorf("Compiled/Copied = %v/%v, want true/false", out.Compiled, out.Copied)
	}
	if id, ok := issue.IssueOf(out.Err); !ok || id != issue.ClipboardUnavailableId {
		t.Errorf("error = %v, want clipboard guide", out.Err)
	}
	assertNoMarker(t, f)
}

func TestMissingSource(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ran := false
	s := f.session(func(*runtime.ExecutionContext) *runtime.Result { ran = true; return &runtime.Result{} })

	out, _ := s.Run(context.Background(), filepath.Join(f.dir, "nope.cpp"), RunAndCopy)
	if ran {
		t.Error("runtime should not run for a missing source")
	}
	if id, ok := issue.IssueOf(out.Err); !ok || id != issue.FileNotFoundId {
		t.Errorf("error = %v, want file-not-found guide", out.Err)
	}
}

func TestMissingCompiler(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	s := f.session(f.compiles(t, 0))
	s.opts.LookPath = func(string) (string, error) { return "", exec.ErrNotFound }

	out, _ := s.Run(context.Background(), f.source, JustRun)
	if id, ok := issue.IssueOf(out.Err); !ok || id != issue.CompilerNotFoundId {
		t.Errorf("error = %v, want compiler-not-found guide", out.Err)
	}
	if out.Compiled {
		t.Error("nothing should have run")
	}
}

func TestRuntimeError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	s := f.session(func(*runtime.ExecutionContext) *runtime.Result {
		return runtime.NewErrorResult(1, runtime.ErrShellNotFound)
	})

	out, _ := s.Run(context.Background(), f.source, JustRun)
	if id, ok := issue.IssueOf(out.Err); !ok || id != issue.ShellNotFoundId {
		t.Errorf("error = %v, want shell-not-found guide", out.Err)
	}
}

func TestWorkDir(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var got []string
	record := func(c *runtime.ExecutionContext) *runtime.Result {
		got = append(got, c.WorkDir)
		return &runtime.Result{}
	}

	if _, err := f.session(record).Run(context.Background(), f.source, JustRun); err != nil {
		t.Fatal(err)
	}

	root := t.TempDir()
	s := f.session(record)
	s.opts.WorkspaceRoot = root
	if _, err := s.Run(context.Background(), f.source, JustRun); err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 || got[0] != f.dir || got[1] != root {
		t.Errorf("work dirs = %v, want [%s %s]", got, f.dir, root)
	}
}

func TestNewRunCancelsPrevious(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	started := make(chan struct{}, 1)
	calls := 0
	var mu sync.Mutex
	var outcomes []*Outcome

	s := f.session(func(c *runtime.ExecutionContext) *runtime.Result {
		calls++
		if calls == 1 {
			started <- struct{}{}
			<-c.Context.Done()
			return runtime.NewExitCodeResult(130)
		}
		return f.compiles(t, 0)(c)
	})
	s.opts.OnComplete = func(o *Outcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, o)
	}

	first, err := s.Start(context.Background(), f.source, RunAndCopy)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	<-started

	second, err := s.Start(context.Background(), f.source, RunAndCopy)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	select {
	case <-first.Done():
	default:
		t.Fatal("Start should wait for the previous run to exit")
	}
	if o := first.Wait(); !o.Canceled || o.Copied {
		t.Errorf("first outcome = %+v, want canceled without copy", o)
	}
	if o := second.Wait(); !o.Copied {
		t.Errorf("second outcome = %+v, want copied", o)
	}
	if n := len(f.sink.writes()); n != 1 {
		t.Errorf("clipboard writes = %d, want 1", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(outcomes) != 2 {
		t.Errorf("OnComplete called %d times, want 2", len(outcomes))
	}
}

func TestClose(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	started := make(chan struct{})
	s := f.session(func(c *runtime.ExecutionContext) *runtime.Result {
		close(started)
		<-c.Context.Done()
		return runtime.NewExitCodeResult(143)
	})

	e, err := s.Start(context.Background(), f.source, JustRun)
	if err != nil {
		t.Fatal(err)
	}
	<-started

	closed := make(chan struct{})
	go func() {
		_ = s.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	if !e.Wait().Canceled {
		t.Error("Close should cancel the running execution")
	}
	if _, err := s.Start(context.Background(), f.source, JustRun); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close error = %v, want ErrClosed", err)
	}
}

func TestModeString(t *testing.T) {
	t.Parallel()

	if JustRun.String() != "justRun" || RunAndCopy.String() != "runAndCopy" {
		t.Errorf("Mode strings = %q, %q", JustRun, RunAndCopy)
	}
}

// TestVirtualRuntimeEndToEnd renders the real build script and runs it with the
// embedded interpreter, using the shell builtins true and false as the compiler.
func TestVirtualRuntimeEndToEnd(t *testing.T) {
	t.Parallel()
	if goruntime.GOOS == "windows" {
		t.Skip("build script needs touch")
	}
	if _, err := exec.LookPath("touch"); err != nil {
		t.Skip("touch not available")
	}

	tests := []struct {
		compiler     string
		wantCompiled bool
	}{
		{compiler: "true", wantCompiled: true},
		{compiler: "false", wantCompiled: false},
	}

	for _, tt := range tests {
		t.Run(tt.compiler, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			s := New(Options{
				Runtime:   runtime.RuntimeTypeVirtual,
				Build:     build.Options{Compiler: tt.compiler},
				Capture:   true,
				Clipboard: f.sink,
				Logger:    log.New(f.log),
				LookPath:  func(name string) (string, error) { return name, nil },
			})

			out, err := s.Run(context.Background(), f.source, RunAndCopy)
			if err != nil {
				t.Fatal(err)
			}
			if out.Err != nil {
				t.Fatalf("outcome error: %v", out.Err)
			}
			if out.Compiled != tt.wantCompiled || out.Copied != tt.wantCompiled {
				t.Errorf("Compiled/Copied = %v/%v, want %v", out.Compiled, out.Copied, tt.wantCompiled)
			}
			if !strings.Contains(out.Output, "[Compiling]...") {
				t.Errorf("captured output = %q", out.Output)
			}
			if tt.wantCompiled && !strings.Contains(out.Output, "[Running]...") {
				t.Errorf("captured output should show the run step: %q", out.Output)
			}
			if !tt.wantCompiled && !strings.Contains(out.Output, "[COMPILATION FAILED]") {
				t.Errorf("captured output should show the failure: %q", out.Output)
			}
			assertNoMarker(t, f)
		})
	}
}

func TestRunWithStdin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var got string
	s := f.session(func(c *runtime.ExecutionContext) *runtime.Result {
		if c.IO.Stdin != nil {
			data, _ := io.ReadAll(c.IO.Stdin)
			got = string(data)
		}
		return runtime.NewExitCodeResult(0)
	})

	if _, err := s.Run(context.Background(), f.source, JustRun, WithStdin(strings.NewReader("3\n1 2 3\n"))); err != nil {
		t.Fatal(err)
	}
	if got != "3\n1 2 3\n" {
		t.Errorf("program stdin = %q", got)
	}
}
