// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and Markdown troubleshooting guides.
//
// An ActionableError names the failed operation, the file involved and what
// to try next. Errors built with WithIssue also point at a guide that
// `cppx explain` renders in the terminal.
package issue
