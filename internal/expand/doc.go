// SPDX-License-Identifier: MPL-2.0

// Package expand flattens a C++ translation unit by inlining its quoted
// #include directives.
//
// Expansion is textual and line-anchored: it does not expand macros, evaluate
// conditional compilation, or understand comments and string literals. Each
// resolved directive is rewritten as a "// " comment followed by the expanded
// content of the included file. Directives that cannot be resolved relative to
// the including file or to an optional workspace root are left untouched so
// the real compiler can deal with them.
//
// Every header is inlined at most once per expansion run. A header is marked
// as visited before its own directives are processed, which makes mutually
// including headers terminate. The entry file is never marked, so a header
// that includes the entry file expands it again as a nested include.
package expand
