// SPDX-License-Identifier: MPL-2.0

package expand

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

type (
	// Expander inlines quoted includes. An Expander holds no per-run state and
	// is safe for concurrent use; every call to Expand gets its own visited set.
	Expander struct {
		fs     afero.Fs
		logger *log.Logger
	}

	// Option configures an Expander.
	Option func(*Expander)

	// Resolution is the outcome of resolving one include path.
	Resolution struct {
		// Path is the absolute path of the existing target file. It is empty
		// when the include could not be resolved.
		Path string
		// FromRoot reports whether the target was found relative to the
		// workspace root rather than the including file's directory.
		FromRoot bool
	}

	// visitedSet holds the absolute paths already inlined during one run.
	visitedSet map[string]struct{}

	// expansion carries the state of a single top-level Expand call through
	// its recursive steps.
	expansion struct {
		fs      afero.Fs
		logger  *log.Logger
		root    string
		visited visitedSet
	}
)

// WithFs sets the filesystem the Expander reads from. Defaults to the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(e *Expander) {
		e.fs = fsys
	}
}

// WithLogger sets the logger used to report each inlined include at debug level.
func WithLogger(logger *log.Logger) Option {
	return func(e *Expander) {
		e.logger = logger
	}
}

// New creates an Expander.
func New(opts ...Option) *Expander {
	e := &Expander{}
	for _, opt := range opts {
		opt(e)
	}
	if e.fs == nil {
		e.fs = afero.NewOsFs()
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}
	return e
}

// Expand reads the OS filesystem and returns the fully inlined text of entryPath.
// See Expander.Expand.
func Expand(entryPath, workspaceRoot string) (string, error) {
	return New().Expand(entryPath, workspaceRoot)
}

// Expand returns the text of entryPath with every resolvable quoted include
// replaced by a comment line and the expansion of the included file.
// workspaceRoot is an optional fallback base directory for includes that do
// not resolve relative to the including file; pass "" to disable it.
//
// A missing entry file yields a *FileNotFoundError and no output.
func (e *Expander) Expand(entryPath, workspaceRoot string) (string, error) {
	entry, err := filepath.Abs(entryPath)
	if err != nil {
		return "", fmt.Errorf("resolve entry path %s: %w", entryPath, err)
	}

	root := ""
	if workspaceRoot != "" {
		if root, err = filepath.Abs(workspaceRoot); err != nil {
			return "", fmt.Errorf("resolve workspace root %s: %w", workspaceRoot, err)
		}
	}

	run := &expansion{
		fs:      e.fs,
		logger:  e.logger,
		root:    root,
		visited: make(visitedSet),
	}
	return run.process(entry, true)
}

// Resolve resolves includePath as written in a file located in dir, falling
// back to workspaceRoot when it is non-empty. Relative dir and workspaceRoot
// are taken from the working directory, as in Expand.
func (e *Expander) Resolve(dir, includePath, workspaceRoot string) Resolution {
	run := &expansion{fs: e.fs, root: absOrSelf(workspaceRoot)}
	return run.resolve(absOrSelf(dir), includePath)
}

// absOrSelf returns the absolute form of path, or path itself when it is
// empty or the working directory cannot be determined.
func absOrSelf(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// process expands the file at currentPath. Non-entry files are marked as
// visited before their directives are followed.
func (x *expansion) process(currentPath string, isEntry bool) (string, error) {
	if !isEntry {
		if x.visited.has(currentPath) {
			return "", nil
		}
		x.visited.add(currentPath)
	}

	data, err := afero.ReadFile(x.fs, currentPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &FileNotFoundError{Path: currentPath}
		}
		return "", fmt.Errorf("read %s: %w", currentPath, err)
	}

	text := string(data)
	dir := filepath.Dir(currentPath)

	directives := Scan(text)
	edits := make([]Edit, 0, len(directives))
	for _, d := range directives {
		res := x.resolve(dir, d.Path)
		if res.Path == "" {
			continue
		}

		x.logger.Debugf("Expand: %q -> %s", d.Path, res.Path)

		body, err := x.process(res.Path, false)
		if err != nil {
			return "", err
		}
		edits = append(edits, Edit{
			Start:       d.Start,
			End:         d.End,
			Replacement: d.CommentLine() + "\n" + body,
		})
	}

	return ApplyEdits(text, edits), nil
}

// resolve tries the including file's directory first, then the workspace root.
func (x *expansion) resolve(dir, includePath string) Resolution {
	if candidate := joinPath(dir, includePath); x.isFile(candidate) {
		return Resolution{Path: candidate}
	}
	if x.root != "" {
		if candidate := joinPath(x.root, includePath); x.isFile(candidate) {
			return Resolution{Path: candidate, FromRoot: true}
		}
	}
	return Resolution{}
}

// isFile reports whether path exists and is not a directory.
func (x *expansion) isFile(path string) bool {
	info, err := x.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// joinPath resolves includePath against base. Absolute include paths are kept.
func joinPath(base, includePath string) string {
	p := filepath.FromSlash(includePath)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func (s visitedSet) has(path string) bool {
	_, ok := s[path]
	return ok
}

func (s visitedSet) add(path string) {
	s[path] = struct{}{}
}

// Resolved reports whether the include was found.
func (r Resolution) Resolved() bool { return r.Path != "" }
