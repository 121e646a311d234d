// SPDX-License-Identifier: MPL-2.0

package clipboard

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/cppx/cppx/internal/config"
)

func fakeEnv(goos string, vars map[string]string, installed ...string) Env {
	return Env{
		GOOS:   goos,
		Getenv: func(k string) string { return vars[k] },
		LookPath: func(name string) (string, error) {
			for _, i := range installed {
				if i == name {
					return "/usr/bin/" + name, nil
				}
			}
			return "", exec.ErrNotFound
		},
	}
}

func TestDetectCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		env    Env
		want   string
		wantOK bool
	}{
		{name: "macOS", env: fakeEnv("darwin", nil, "pbcopy"), want: "/usr/bin/pbcopy --", wantOK: true},
		{name: "wayland prefers wl-copy", env: fakeEnv("linux", map[string]string{"WAYLAND_DISPLAY": "wayland-0", "DISPLAY": ":0"}, "wl-copy", "xclip"), want: "/usr/bin/wl-copy --", wantOK: true},
		{name: "x11 xclip", env: fakeEnv("linux", map[string]string{"DISPLAY": ":0"}, "xclip", "xsel"), want: "/usr/bin/xclip -selection clipboard", wantOK: true},
		{name: "x11 xsel", env: fakeEnv("linux", map[string]string{"DISPLAY": ":0"}, "xsel"), want: "/usr/bin/xsel --clipboard --input", wantOK: true},
		{name: "x11 tools ignored without display", env: fakeEnv("linux", nil, "xclip"), wantOK: false},
		{name: "wsl", env: fakeEnv("linux", nil, "clip.exe"), want: "/usr/bin/clip.exe --", wantOK: true},
		{name: "nothing installed", env: fakeEnv("linux", map[string]string{"DISPLAY": ":0"}), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd, ok := DetectCommand(tt.env)
			if ok != tt.wantOK {
				t.Fatalf("DetectCommand() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			got := cmd.String()
			if len(cmd.Args) == 0 {
				got += " --"
			}
			if got != tt.want {
				t.Errorf("DetectCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	var tty bytes.Buffer
	withXclip := fakeEnv("linux", map[string]string{"DISPLAY": ":0"}, "xclip")
	bare := fakeEnv("linux", nil)

	tests := []struct {
		name    string
		mode    config.ClipboardMode
		env     Env
		check   func(Sink) bool
		wantErr error
	}{
		{name: "none", mode: config.ClipboardNone, env: bare, check: func(s Sink) bool { return s == Discard }},
		{name: "osc52", mode: config.ClipboardOSC52, env: withXclip, check: func(s Sink) bool { _, ok := s.(*OSC52Sink); return ok }},
		{name: "command", mode: config.ClipboardCommand, env: withXclip, check: func(s Sink) bool { _, ok := s.(*CommandSink); return ok }},
		{name: "command missing", mode: config.ClipboardCommand, env: bare, wantErr: ErrNoClipboardCommand},
		{name: "auto with command", mode: config.ClipboardAuto, env: withXclip, check: func(s Sink) bool { _, ok := s.(*fallbackSink); return ok }},
		{name: "auto without command", mode: config.ClipboardAuto, env: bare, check: func(s Sink) bool { _, ok := s.(*OSC52Sink); return ok }},
		{name: "invalid", mode: "printer", env: bare, wantErr: config.ErrInvalidClipboardMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sink, err := New(tt.mode, &tty, tt.env)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if !tt.check(sink) {
				t.Errorf("New(%s) returned %T", tt.mode, sink)
			}
		})
	}
}

func TestOSC52Sink(t *testing.T) {
	t.Parallel()

	text := "int main() {}\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(text))

	tests := []struct {
		name   string
		vars   map[string]string
		prefix string
	}{
		{name: "plain terminal", vars: nil, prefix: "\x1b]52;c;"},
		{name: "tmux", vars: map[string]string{"TMUX": "/tmp/tmux-1000/default,1,0"}, prefix: "\x1bPtmux;"},
		{name: "screen", vars: map[string]string{"TERM": "screen-256color"}, prefix: "\x1bP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			sink := NewOSC52Sink(&buf, func(k string) string { return tt.vars[k] })
			if err := sink.WriteText(context.Background(), text); err != nil {
				t.Fatalf("WriteText() error: %v", err)
			}
			out := buf.String()
			if !strings.HasPrefix(out, tt.prefix) {
				t.Errorf("output %q should start with %q", out, tt.prefix)
			}
			if tt.name != "screen" && !strings.Contains(out, encoded) {
				t.Errorf("output %q should contain base64 payload %q", out, encoded)
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestOSC52SinkWriteError(t *testing.T) {
	t.Parallel()

	err := NewOSC52Sink(failingWriter{}, func(string) string { return "" }).WriteText(context.Background(), "x")
	if !errors.Is(err, ErrClipboardWrite) {
		t.Errorf("error = %v, want ErrClipboardWrite", err)
	}
}

func TestCommandSink(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell as the clipboard helper")
	}

	out := filepath.Join(t.TempDir(), "clip.txt")
	sink := NewCommandSink(Command{Name: "sh", Args: []string{"-c", `cat > "$0"`, out}})

	text := "// #include \"a.h\"\nint a;\n"
	if err := sink.WriteText(context.Background(), text); err != nil {
		t.Fatalf("WriteText() error: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read helper output: %v", err)
	}
	if string(got) != text {
		t.Errorf("helper received %q, want %q", got, text)
	}
}

func TestCommandSinkFailure(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell as the clipboard helper")
	}

	sink := NewCommandSink(Command{Name: "sh", Args: []string{"-c", "echo 'Error: cannot open display' >&2; exit 1"}})
	err := sink.WriteText(context.Background(), "x")

	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("error = %v, want *WriteError", err)
	}
	if !errors.Is(err, ErrClipboardWrite) {
		t.Error("error should wrap ErrClipboardWrite")
	}
	if !strings.Contains(err.Error(), "open display") {
		t.Errorf("error should include helper stderr, got %v", err)
	}
}

type recordingSink struct {
	err error
	got []string
}

func (r *recordingSink) WriteText(_ context.Context, text string) error {
	r.got = append(r.got, text)
	return r.err
}

func TestFallbackSink(t *testing.T) {
	t.Parallel()

	primary := &recordingSink{err: errors.New("xclip: no display")}
	fallback := &recordingSink{}
	s := &fallbackSink{primary: primary, fallback: fallback}

	if err := s.WriteText(context.Background(), "payload"); err != nil {
		t.Fatalf("WriteText() error: %v", err)
	}
	if len(fallback.got) != 1 || fallback.got[0] != "payload" {
		t.Errorf("fallback received %v", fallback.got)
	}

	fallback.err = errors.New("no tty")
	err := s.WriteText(context.Background(), "payload")
	if err == nil || !strings.Contains(err.Error(), "no display") || !strings.Contains(err.Error(), "no tty") {
		t.Errorf("error = %v, want both failures", err)
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	if err := Discard.WriteText(context.Background(), "anything"); err != nil {
		t.Errorf("Discard.WriteText() error: %v", err)
	}
}
