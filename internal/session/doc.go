// SPDX-License-Identifier: MPL-2.0

// Package session runs the compile, run and copy workflow for one source file.
//
// A Session owns at most one execution. Starting a run cancels the previous
// one and waits for it to exit. Compile success is decided by the marker file
// the build script touches, never by the exit status of the script, so a
// program that crashes after compiling still counts as compiled.
package session
