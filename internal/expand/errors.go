// SPDX-License-Identifier: MPL-2.0

package expand

import (
	"errors"
	"fmt"
)

// ErrFileNotFound is the sentinel error wrapped by FileNotFoundError.
var ErrFileNotFound = errors.New("file not found")

// FileNotFoundError is returned when the entry file, or an include target that
// disappeared after it was resolved, does not exist.
type FileNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// Unwrap returns ErrFileNotFound for errors.Is() compatibility.
func (e *FileNotFoundError) Unwrap() error { return ErrFileNotFound }
