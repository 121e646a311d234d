// SPDX-License-Identifier: MPL-2.0

package mcptools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cppx/cppx/internal/expand"
)

type (
	// ExpandArgs defines the input parameters for the cppx_expand tool.
	ExpandArgs struct {
		File          string `json:"file" jsonschema:"Path of the C++ source file to flatten"`
		WorkspaceRoot string `json:"workspaceRoot,omitempty" jsonschema:"Fallback directory for includes not found next to the including file"`
	}

	// ExpandHandler holds the dependencies for the expand tool.
	ExpandHandler struct {
		Expander *expand.Expander
		// WorkspaceRoot is used when the call does not name one.
		WorkspaceRoot string
		// BaseDir resolves relative file arguments. Empty means the
		// process working directory.
		BaseDir string
		Logger  *log.Logger
	}
)

// Handle processes a cppx_expand request.
func (h *ExpandHandler) Handle(_ context.Context, _ *mcp.CallToolRequest, args ExpandArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.File == "" {
		h.Logger.Warn("cppx_expand called with empty file")
		return errorResult("Error: file parameter is required"), nil, nil
	}

	root := args.WorkspaceRoot
	if root == "" {
		root = h.WorkspaceRoot
	}
	file := resolvePath(h.BaseDir, args.File)
	if root != "" {
		root = resolvePath(h.BaseDir, root)
	}

	text, err := h.Expander.Expand(file, root)
	if err != nil {
		var notFound *expand.FileNotFoundError
		if errors.As(err, &notFound) {
			h.Logger.Info("cppx_expand file not found", "path", notFound.Path)
			return errorResult(fmt.Sprintf("File not found: %s", notFound.Path)), nil, nil
		}
		h.Logger.Error("cppx_expand failed", "file", file, "err", err)
		return errorResult(fmt.Sprintf("Error: %v", err)), nil, nil
	}

	h.Logger.Info("cppx_expand", "file", file, "bytes", len(text), "elapsed", time.Since(start))
	return textResult(text), nil, nil
}

// resolvePath makes p absolute against base when it is relative.
func resolvePath(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}
