// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

const (
	// DefaultCompiler is the compiler command used when none is configured.
	DefaultCompiler = "g++"
	// DefaultOutput is the name of the compiled binary, relative to the working directory.
	DefaultOutput = "a.out"
	// DefaultMarkerName is the marker file created next to the source file on compile success.
	DefaultMarkerName = ".cpp_expander_success"
)

// DefaultFlags are the compiler flags used when none are configured.
var DefaultFlags = []string{"-std=c++20", "-O2", "-I."}

var (
	// ErrNoSource is returned when Options has no source file.
	ErrNoSource = errors.New("no source file")
	// ErrInvalidScript is returned when the rendered script does not parse.
	ErrInvalidScript = errors.New("invalid build script")
)

// Options controls the rendered build script.
type Options struct {
	// Source is the absolute path of the C++ file to compile.
	Source string
	// Compiler is the compiler command. Empty means DefaultCompiler.
	Compiler string
	// Flags are passed to the compiler before the source file. Nil means DefaultFlags.
	Flags []string
	// Output is the binary name written to the working directory. Empty means DefaultOutput.
	Output string
	// MarkerName is the marker file name. Empty means DefaultMarkerName.
	MarkerName string
	// StackUnlimited raises the stack size limit before compiling and running.
	StackUnlimited bool
	// ClearScreen clears the terminal before compiling.
	ClearScreen bool
	// Pause waits for Enter before the script exits so output stays visible.
	Pause bool
}

// MarkerPath returns the absolute marker file path for opts: the marker lives
// in the source file's directory.
func (o Options) MarkerPath() string {
	name := o.MarkerName
	if name == "" {
		name = DefaultMarkerName
	}
	return filepath.Join(filepath.Dir(o.Source), name)
}

// Script renders the build-and-run script for opts.
func Script(opts Options) (string, error) {
	if strings.TrimSpace(opts.Source) == "" {
		return "", ErrNoSource
	}

	compiler := opts.Compiler
	if compiler == "" {
		compiler = DefaultCompiler
	}
	flags := opts.Flags
	if flags == nil {
		flags = DefaultFlags
	}
	output := opts.Output
	if output == "" {
		output = DefaultOutput
	}

	binary := output
	if !filepath.IsAbs(binary) && !strings.ContainsRune(binary, '/') {
		binary = "./" + binary
	}

	marker, err := quote(opts.MarkerPath())
	if err != nil {
		return "", err
	}

	compileArgs := make([]string, 0, len(flags)+4)
	compileArgs = append(compileArgs, compiler)
	compileArgs = append(compileArgs, flags...)
	compileArgs = append(compileArgs, opts.Source, "-o", binary)
	compileLine, err := quoteAll(compileArgs)
	if err != nil {
		return "", err
	}
	runLine, err := quote(binary)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if opts.ClearScreen {
		b.WriteString("clear 2>/dev/null || true\n")
	}
	if opts.StackUnlimited {
		b.WriteString("ulimit -s unlimited 2>/dev/null || true\n")
	}
	b.WriteString("echo \"[Compiling]...\"\n")
	fmt.Fprintf(&b, "%s && touch %s\n", compileLine, marker)
	fmt.Fprintf(&b, "if [ -f %s ]; then\n", marker)
	b.WriteString("\techo \"[Running]...\"\n")
	fmt.Fprintf(&b, "\t%s\n", runLine)
	b.WriteString("else\n")
	b.WriteString("\tprintf '\\n\\033[31m[COMPILATION FAILED]\\033[0m\\n'\n")
	b.WriteString("fi\n")
	if opts.Pause {
		b.WriteString("echo \"\"\n")
		b.WriteString("echo \"Press Enter to close...\"\n")
		b.WriteString("read dummy\n")
	}

	script := b.String()
	if err := Validate(script); err != nil {
		return "", err
	}
	return script, nil
}

// Validate parses script as a POSIX shell program.
func Validate(script string) error {
	if _, err := syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Parse(strings.NewReader(script), "build"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	return nil
}

func quote(s string) (string, error) {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "", fmt.Errorf("quote %q: %w", s, err)
	}
	return q, nil
}

func quoteAll(args []string) (string, error) {
	quoted := make([]string, len(args))
	for i, a := range args {
		q, err := quote(a)
		if err != nil {
			return "", err
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " "), nil
}
