// SPDX-License-Identifier: MPL-2.0

package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cppx/cppx/internal/issue"
	"github.com/cppx/cppx/internal/session"
)

type (
	// RunArgs defines the input parameters for the cppx_run tool.
	RunArgs struct {
		File   string `json:"file" jsonschema:"Path of the C++ source file to compile and run"`
		Input  string `json:"input,omitempty" jsonschema:"Text fed to the program on stdin"`
		Expand bool   `json:"expand,omitempty" jsonschema:"Return the flattened source when compilation succeeds"`
	}

	// RunHandler holds the dependencies for the run tool. Session must be
	// configured to capture output.
	RunHandler struct {
		Session *session.Session
		BaseDir string
		Logger  *log.Logger
	}
)

// Handle processes a cppx_run request.
func (h *RunHandler) Handle(ctx context.Context, _ *mcp.CallToolRequest, args RunArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.File == "" {
		h.Logger.Warn("cppx_run called with empty file")
		return errorResult("Error: file parameter is required"), nil, nil
	}

	mode := session.JustRun
	if args.Expand {
		mode = session.RunAndCopy
	}

	out, err := h.Session.Run(ctx, resolvePath(h.BaseDir, args.File), mode, session.WithStdin(strings.NewReader(args.Input)))
	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			return errorResult("Error: server is shutting down"), nil, nil
		}
		return nil, nil, err
	}

	h.Logger.Info("cppx_run", "file", out.Source, "compiled", out.Compiled, "exit", out.ExitCode, "elapsed", time.Since(start))

	text := FormatOutcome(out)
	if out.Err != nil || out.Canceled {
		return errorResult(text), nil, nil
	}
	return textResult(text), nil, nil
}

// FormatOutcome renders a run outcome as plain text for the calling agent.
func FormatOutcome(out *session.Outcome) string {
	var b strings.Builder

	switch {
	case out.Canceled:
		b.WriteString("Run canceled by a newer request.\n")
	case out.Err != nil:
		var ae *issue.ActionableError
		if errors.As(out.Err, &ae) {
			b.WriteString(ae.Format(false))
		} else {
			fmt.Fprintf(&b, "Error: %v", out.Err)
		}
		b.WriteString("\n")
	default:
		fmt.Fprintf(&b, "Compiled: %s\n", yesNo(out.Compiled))
		fmt.Fprintf(&b, "Exit code: %d\n", out.ExitCode)
	}

	writeSection(&b, "stdout", out.Output)
	writeSection(&b, "stderr", out.ErrOutput)
	if out.Payload != "" {
		writeSection(&b, "expanded source", out.Payload)
	}
	return b.String()
}

func writeSection(b *strings.Builder, title, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(b, "\n── %s ──\n", title)
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
