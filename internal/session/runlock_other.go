// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package session

import "context"

// runLock is a no-op where flock is unavailable; runs are still serialized
// within one process by the Session.
type runLock struct{}

func acquireRunLock(context.Context, string, func()) (*runLock, error) {
	return &runLock{}, nil
}

// Release is a no-op.
func (l *runLock) Release() {}
