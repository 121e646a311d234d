// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestScriptDefaults(t *testing.T) {
	t.Parallel()

	src := filepath.Join("/work", "contest", "main.cpp")
	script, err := Script(Options{
		Source:         src,
		StackUnlimited: true,
		ClearScreen:    true,
		Pause:          true,
	})
	if err != nil {
		t.Fatalf("Script() error: %v", err)
	}

	wantInOrder := []string{
		"clear",
		"ulimit -s unlimited",
		`echo "[Compiling]..."`,
		"g++",
		"-std=c++20",
		"-O2",
		"-I.",
		src,
		"-o ./a.out && touch",
		DefaultMarkerName,
		"if [ -f",
		`echo "[Running]..."`,
		"./a.out",
		"[COMPILATION FAILED]",
		"Press Enter to close...",
		"read dummy",
	}

	pos := 0
	for _, want := range wantInOrder {
		idx := strings.Index(script[pos:], want)
		if idx < 0 {
			t.Fatalf("script missing %q after offset %d:\n%s", want, pos, script)
		}
		pos += idx + len(want)
	}
}

func TestScriptOptionalParts(t *testing.T) {
	t.Parallel()

	script, err := Script(Options{Source: "/work/main.cpp"})
	if err != nil {
		t.Fatalf("Script() error: %v", err)
	}

	for _, unwanted := range []string{"clear", "ulimit", "read dummy", "Press Enter"} {
		if strings.Contains(script, unwanted) {
			t.Errorf("script unexpectedly contains %q:\n%s", unwanted, script)
		}
	}
}

func TestScriptCustomCompiler(t *testing.T) {
	t.Parallel()

	script, err := Script(Options{
		Source:     "/work/main.cpp",
		Compiler:   "clang++",
		Flags:      []string{"-std=c++17", "-DLOCAL"},
		Output:     "sol",
		MarkerName: ".ok",
	})
	if err != nil {
		t.Fatalf("Script() error: %v", err)
	}

	for _, want := range []string{"clang++", "-std=c++17", "-DLOCAL", "-o ./sol", filepath.Join("/work", ".ok")} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
	if strings.Contains(script, "-O2") {
		t.Errorf("explicit flags should replace defaults:\n%s", script)
	}
}

// TestScriptQuotesPaths verifies that paths with shell metacharacters still
// produce a script that parses.
func TestScriptQuotesPaths(t *testing.T) {
	t.Parallel()

	src := "/work/my contest/it's $HOME; rm -rf/main.cpp"
	script, err := Script(Options{Source: src, Pause: true})
	if err != nil {
		t.Fatalf("Script() error: %v", err)
	}
	if err := Validate(script); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestScriptNoSource(t *testing.T) {
	t.Parallel()

	_, err := Script(Options{Source: "  "})
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("Script() error = %v, want ErrNoSource", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := Validate("echo ok\n"); err != nil {
		t.Errorf("Validate() valid script error: %v", err)
	}
	err := Validate("if [ -f x ]; then\n")
	if !errors.Is(err, ErrInvalidScript) {
		t.Errorf("Validate() error = %v, want ErrInvalidScript", err)
	}
}

func TestOptionsMarkerPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{name: "default marker", opts: Options{Source: "/a/b/main.cpp"}, want: filepath.Join("/a/b", DefaultMarkerName)},
		{name: "custom marker", opts: Options{Source: "/a/b/main.cpp", MarkerName: ".done"}, want: filepath.Join("/a/b", ".done")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.opts.MarkerPath(); got != tt.want {
				t.Errorf("MarkerPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
