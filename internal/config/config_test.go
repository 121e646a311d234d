// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/cppx/cppx/internal/issue"
)

const (
	testConfigDir  = "/home/user/.config/cppx"
	testProjectDir = "/work/contest"
)

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func load(t *testing.T, fsys afero.Fs) (*Config, []string, error) {
	t.Helper()
	return loadWithOptions(context.Background(), LoadOptions{
		ConfigDirPath: testConfigDir,
		ProjectDir:    testProjectDir,
		Fs:            fsys,
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Compiler.Command != "g++" {
		t.Errorf("compiler.command = %q, want g++", cfg.Compiler.Command)
	}
	if !slices.Equal(cfg.Compiler.Flags, []string{"-std=c++20", "-O2", "-I."}) {
		t.Errorf("compiler.flags = %v", cfg.Compiler.Flags)
	}
	if cfg.MarkerName != ".cpp_expander_success" {
		t.Errorf("marker_name = %q", cfg.MarkerName)
	}
	if cfg.Runtime != RuntimeNative || cfg.Clipboard != ClipboardAuto {
		t.Errorf("runtime/clipboard = %s/%s, want native/auto", cfg.Runtime, cfg.Clipboard)
	}
	if cfg.WorkspaceRoot != "" {
		t.Errorf("workspace_root = %q, want empty", cfg.WorkspaceRoot)
	}
}

func TestLoadDefaultsWhenNoFiles(t *testing.T) {
	t.Parallel()

	cfg, sources, err := load(t, afero.NewMemMapFs())
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("sources = %v, want none", sources)
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("watch.debounce = %s, want 300ms", cfg.Watch.Debounce)
	}
}

func TestLoadUserCUE(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, filepath.Join(testConfigDir, "config.cue"), `
compiler: {
	command: "clang++"
	flags: ["-std=c++17", "-DLOCAL"]
}
runtime: "virtual"
clipboard: "osc52"
watch: debounce: "1.5s"
`)

	cfg, sources, err := load(t, fsys)
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if len(sources) != 1 {
		t.Errorf("sources = %v, want the user file", sources)
	}
	if cfg.Compiler.Command != "clang++" {
		t.Errorf("compiler.command = %q", cfg.Compiler.Command)
	}
	if !slices.Equal(cfg.Compiler.Flags, []string{"-std=c++17", "-DLOCAL"}) {
		t.Errorf("compiler.flags = %v", cfg.Compiler.Flags)
	}
	if cfg.Compiler.Output != "a.out" {
		t.Errorf("unset compiler.output should keep default, got %q", cfg.Compiler.Output)
	}
	if cfg.Runtime != RuntimeVirtual || cfg.Clipboard != ClipboardOSC52 {
		t.Errorf("runtime/clipboard = %s/%s", cfg.Runtime, cfg.Clipboard)
	}
	if cfg.Watch.Debounce != 1500*time.Millisecond {
		t.Errorf("watch.debounce = %s, want 1.5s", cfg.Watch.Debounce)
	}
}

func TestLoadProjectTOMLOverridesUserCUE(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, filepath.Join(testConfigDir, "config.cue"), `runtime: "virtual"
pause: false
`)
	writeFile(t, fsys, filepath.Join(testProjectDir, ProjectFileName), `
runtime = "native"
workspace_root = "/work/library"

[compiler]
output = "sol"
`)

	cfg, sources, err := load(t, fsys)
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if len(sources) != 2 {
		t.Errorf("sources = %v, want user and project files", sources)
	}
	if cfg.Runtime != RuntimeNative {
		t.Errorf("project file should override runtime, got %s", cfg.Runtime)
	}
	if cfg.Pause {
		t.Error("user file value for pause should survive")
	}
	if cfg.WorkspaceRoot != "/work/library" || cfg.Compiler.Output != "sol" {
		t.Errorf("workspace_root/output = %q/%q", cfg.WorkspaceRoot, cfg.Compiler.Output)
	}
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		wantMsg string
	}{
		{
			name:    "unknown runtime",
			file:    filepath.Join(testConfigDir, "config.cue"),
			content: `runtime: "container"`,
			wantMsg: "runtime",
		},
		{
			name:    "unknown field",
			file:    filepath.Join(testConfigDir, "config.cue"),
			content: `colour: "red"`,
			wantMsg: "colour",
		},
		{
			name:    "marker with path separator",
			file:    filepath.Join(testConfigDir, "config.cue"),
			content: `marker_name: "../x"`,
			wantMsg: "marker_name",
		},
		{
			name:    "cue syntax error",
			file:    filepath.Join(testConfigDir, "config.cue"),
			content: `runtime: `,
			wantMsg: "config.cue",
		},
		{
			name:    "toml schema violation",
			file:    filepath.Join(testProjectDir, ProjectFileName),
			content: "clipboard = \"printer\"\n",
			wantMsg: "clipboard",
		},
		{
			name:    "toml syntax error",
			file:    filepath.Join(testProjectDir, ProjectFileName),
			content: "[compiler\n",
			wantMsg: ProjectFileName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fsys := afero.NewMemMapFs()
			writeFile(t, fsys, tt.file, tt.content)

			_, _, err := load(t, fsys)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err, tt.wantMsg)
			}
			if id, ok := issue.IssueOf(err); !ok || id != issue.ConfigLoadFailedId {
				t.Errorf("error should link the config guide, got %v %v", id, ok)
			}
		})
	}
}

func TestLoadExplicitConfigFile(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/tmp/custom.cue", `tty: true`)

	cfg, sources, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: "/tmp/custom.cue", Fs: fsys})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if !cfg.TTY || len(sources) != 1 {
		t.Errorf("tty = %v, sources = %v", cfg.TTY, sources)
	}

	_, _, err = loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: "/tmp/missing.cue", Fs: fsys})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Resource != "/tmp/missing.cue" {
		t.Errorf("missing explicit file error = %v", err)
	}
}

func TestLoadCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := loadWithOptions(ctx, LoadOptions{Fs: afero.NewMemMapFs()}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// Environment tests mutate process state and cannot run in parallel.
func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("CPPX_COMPILER_COMMAND", "clang++")
	t.Setenv("CPPX_RUNTIME", "virtual")
	t.Setenv("CPPX_WATCH_DEBOUNCE", "2s")

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, filepath.Join(testProjectDir, ProjectFileName), "runtime = \"native\"\n")

	cfg, _, err := load(t, fsys)
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if cfg.Compiler.Command != "clang++" {
		t.Errorf("compiler.command = %q, want env value", cfg.Compiler.Command)
	}
	if cfg.Runtime != RuntimeVirtual {
		t.Errorf("env should beat the project file, got runtime %s", cfg.Runtime)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("watch.debounce = %s, want 2s", cfg.Watch.Debounce)
	}
}

func TestLoadEnvironmentInvalidValue(t *testing.T) {
	t.Setenv("CPPX_CLIPBOARD", "printer")

	_, _, err := load(t, afero.NewMemMapFs())
	if !errors.Is(err, ErrInvalidClipboardMode) {
		t.Errorf("error = %v, want ErrInvalidClipboardMode", err)
	}
}

func TestGenerateCUERoundTrip(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	path := filepath.Join(testConfigDir, "config.cue")
	if err := WriteDefault(fsys, path, false); err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}

	cfg, _, err := load(t, fsys)
	if err != nil {
		t.Fatalf("generated config should load: %v", err)
	}
	def := DefaultConfig()
	if cfg.Compiler.Command != def.Compiler.Command || cfg.Watch.Debounce != def.Watch.Debounce {
		t.Errorf("generated config differs from defaults: %+v", cfg)
	}

	if err := WriteDefault(fsys, path, false); !errors.Is(err, fs.ErrExist) {
		t.Errorf("second WriteDefault() error = %v, want fs.ErrExist", err)
	}
	if err := WriteDefault(fsys, path, true); err != nil {
		t.Errorf("WriteDefault(force) error: %v", err)
	}
}

func TestFilePath(t *testing.T) {
	t.Parallel()

	got, err := FilePath("/etc/cppx")
	if err != nil {
		t.Fatalf("FilePath() error: %v", err)
	}
	if want := filepath.Join("/etc/cppx", "config.cue"); got != want {
		t.Errorf("FilePath() = %q, want %q", got, want)
	}
}
