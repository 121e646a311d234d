// SPDX-License-Identifier: MPL-2.0

//go:build unix

package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// lockPollInterval is how often a waiting run retries the lock.
const lockPollInterval = 50 * time.Millisecond

// runLock is an exclusive flock serializing cppx processes that build in the
// same directory. The kernel drops it when the descriptor closes, so a
// crashed process never leaves it held.
type runLock struct {
	file *os.File
}

// acquireRunLock takes the lock at path, calling onWait once if another
// process holds it. It gives up when ctx is done.
func acquireRunLock(ctx context.Context, path string, onWait func()) (*runLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	waited := false
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &runLock{file: f}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			f.Close()
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}
		if !waited && onWait != nil {
			onWait()
			waited = true
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// Release unlocks and closes the lock file. Repeated calls are no-ops.
func (l *runLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}
