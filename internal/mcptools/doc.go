// SPDX-License-Identifier: MPL-2.0

// Package mcptools exposes the expand and run workflows as Model Context
// Protocol tools served over stdio.
//
// Tool failures (missing files, failed copies) are reported as tool results
// with IsError set so the calling agent can read them; only protocol-level
// problems are returned as Go errors.
package mcptools
