// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableErrorError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "compile"},
			want: "failed to compile",
		},
		{
			name: "operation with resource",
			err:  &ActionableError{Operation: "expand includes", Resource: "/work/main.cpp"},
			want: "failed to expand includes: /work/main.cpp",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "expand includes",
				Resource:  "/work/main.cpp",
				Cause:     errors.New("file not found"),
			},
			want: "failed to expand includes: /work/main.cpp: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableErrorFormat(t *testing.T) {
	t.Parallel()

	root := errors.New("permission denied")
	err := NewErrorContext().
		WithOperation("copy to clipboard").
		WithSuggestions("Install xclip", "Set clipboard: \"osc52\"").
		WithIssue(ClipboardUnavailableId).
		Wrap(fmt.Errorf("run xclip: %w", root)).
		Build()

	plain := err.Format(false)
	for _, want := range []string{
		"failed to copy to clipboard: run xclip: permission denied",
		"  • Install xclip",
		"cppx explain clipboard-unavailable",
	} {
		if !strings.Contains(plain, want) {
			t.Errorf("Format(false) missing %q:\n%s", want, plain)
		}
	}
	if strings.Contains(plain, "Error chain") {
		t.Errorf("Format(false) should not include the error chain:\n%s", plain)
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") || !strings.Contains(verbose, "2. permission denied") {
		t.Errorf("Format(true) should list the error chain:\n%s", verbose)
	}
}

func TestErrorContextBuild(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want untyped nil", err)
	}

	cause := errors.New("boom")
	err := NewErrorContext().WithOperation("run").Wrap(cause).BuildError()
	if !errors.Is(err, cause) {
		t.Error("built error should unwrap to its cause")
	}
	if err.(*ActionableError).HasSuggestions() {
		t.Error("HasSuggestions() = true without suggestions")
	}
}

func TestIssueOf(t *testing.T) {
	t.Parallel()

	linked := NewErrorContext().WithOperation("compile").WithIssue(CompilationFailedId).BuildError()
	if id, ok := IssueOf(fmt.Errorf("outer: %w", linked)); !ok || id != CompilationFailedId {
		t.Errorf("IssueOf() = %v, %v; want %v, true", id, ok, CompilationFailedId)
	}

	if _, ok := IssueOf(WrapWithContext(errors.New("x"), "compile", "")); ok {
		t.Error("IssueOf() should report false for an error without a guide")
	}
	if _, ok := IssueOf(errors.New("plain")); ok {
		t.Error("IssueOf() should report false for a plain error")
	}
	if WrapWithContext(nil, "compile", "") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}
}
