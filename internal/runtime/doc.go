// SPDX-License-Identifier: MPL-2.0

// Package runtime executes rendered build scripts.
//
// Two runtime implementations are available:
//   - native: runs the script with bash or sh from PATH, optionally
//     attached to a pseudo-terminal
//   - virtual: runs the script with an embedded POSIX shell interpreter (mvdan/sh)
//
// All runtimes implement the Runtime interface with Name(), Execute(), Available(), and Validate().
// Runtimes supporting output capture implement CapturingRuntime.
package runtime
