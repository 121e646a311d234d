// SPDX-License-Identifier: MPL-2.0

package session

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
)

// lockFilePath returns the lock file guarding builds that write marker.
// Lock files live in $XDG_RUNTIME_DIR, falling back to the temp directory,
// so source directories stay clean.
func lockFilePath(getenv func(string) string, marker string) string {
	dir := getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(filepath.Dir(marker)))
	return filepath.Join(dir, fmt.Sprintf("cppx-%016x.lock", h.Sum64()))
}
