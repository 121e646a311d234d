// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs the workflow when source files change.
//
// It monitors a directory tree for files matching glob patterns and invokes
// a callback after a debounce period. Events within the window are coalesced
// so the callback fires once with the full set of changed paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	gitignore "github.com/denormal/go-gitignore"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces an editor's write-then-rename into one run.
const defaultDebounce = 300 * time.Millisecond

const gitignoreFile = ".gitignore"

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

// defaultIgnores are always excluded: VCS metadata, build output and editor noise.
var defaultIgnores = []string{
	"**/.git/**",
	"**/build/**",
	"**/cmake-build-*/**",
	"**/*.o",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Patterns are doublestar globs (e.g. "**/*.cpp") selecting the files
		// that trigger callbacks. An empty slice watches all non-ignored files.
		Patterns []string

		// Ignore are additional doublestar globs merged with the defaults.
		Ignore []string

		// Gitignore applies the .gitignore file at BaseDir. The file is
		// reloaded when it changes.
		Gitignore bool

		// Debounce is the quiet period after the last event. Zero or negative
		// values fall back to defaultDebounce.
		Debounce time.Duration

		// BaseDir is the root directory to watch. Empty means the current
		// working directory.
		BaseDir string

		// OnChange receives the sorted changed paths, relative to BaseDir.
		// Calls never overlap.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives warnings. Nil discards them.
		Logger *log.Logger
	}

	// Watcher monitors BaseDir. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		baseDir  string
		started  atomic.Bool

		giMu sync.RWMutex
		gi   gitignore.GitIgnore
	}
)

// New resolves BaseDir, validates the patterns and registers every
// non-ignored directory with fsnotify.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		logger:   logger,
		debounce: debounce,
		baseDir:  absBase,
	}
	if cfg.Gitignore {
		w.gi = loadGitignore(absBase)
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("watch: close after init failure", "err", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// BaseDir returns the absolute watched directory.
func (w *Watcher) BaseDir() string { return w.baseDir }

// Run blocks until ctx is canceled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		runMu   sync.Mutex
	)

	fire := func() {
		runMu.Lock()
		defer runMu.Unlock()

		if ctx.Err() != nil {
			return
		}

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Warn("watch: callback error", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("watch: close fsnotify", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}

			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}

			if w.cfg.Gitignore && filepath.ToSlash(rel) == gitignoreFile {
				w.reloadGitignore()
				continue
			}

			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			if w.isIgnored(rel, false) || !w.matchesPatterns(rel) {
				continue
			}

			mu.Lock()
			pending[filepath.ToSlash(rel)] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("watch: fsnotify error", "err", err)
		}
	}
}

// addDirectories registers BaseDir and every non-ignored directory below it.
// Pattern filtering happens when events arrive.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("watch: skipping inaccessible path", "path", path, "err", walkDirErr)
			return nil //nolint:nilerr // inaccessible paths are skipped
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(w.baseDir, path)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}

		if rel != "." && w.isIgnored(rel, true) {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir watches directories created after startup.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil || w.isIgnored(rel, true) {
		return
	}

	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("watch: add new directory", "path", path, "err", addErr)
	}
}

// isIgnored reports whether rel (relative to BaseDir) matches an ignore
// pattern or, when enabled, a .gitignore rule.
func (w *Watcher) isIgnored(rel string, isDir bool) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
		if isDir {
			if matched, matchErr := doublestar.Match(pat, normalized+"/"); matchErr == nil && matched {
				return true
			}
		}
	}

	w.giMu.RLock()
	gi := w.gi
	w.giMu.RUnlock()
	if gi != nil {
		if m := gi.Relative(normalized, isDir); m != nil && m.Ignore() {
			return true
		}
	}
	return false
}

// matchesPatterns reports whether rel matches a watch pattern. With no
// patterns configured every path matches.
func (w *Watcher) matchesPatterns(rel string) bool {
	if len(w.cfg.Patterns) == 0 {
		return true
	}
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.cfg.Patterns {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

func (w *Watcher) reloadGitignore() {
	gi := loadGitignore(w.baseDir)
	w.giMu.Lock()
	w.gi = gi
	w.giMu.Unlock()
	w.logger.Debug("watch: reloaded .gitignore")
}

// loadGitignore parses dir/.gitignore. A missing file yields nil.
func loadGitignore(dir string) gitignore.GitIgnore {
	f, err := os.Open(filepath.Join(dir, gitignoreFile))
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, dir, nil)
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

// validatePatterns rejects malformed globs up front so they cannot silently
// never match.
func validatePatterns(patterns []string, kind string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("watch: invalid %s pattern %q", kind, p)
		}
	}
	return nil
}
