// SPDX-License-Identifier: MPL-2.0

// Package build renders the shell script that compiles a single C++ source
// file and runs the resulting binary.
//
// Compile success is reported through a marker file rather than an exit
// status: the script creates the marker only when the compiler succeeds, so
// the program's own exit code, a crash, or a kill cannot be mistaken for a
// failed build. Callers check for the marker after the script finishes.
package build
