// SPDX-License-Identifier: MPL-2.0

package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// ServerName is the implementation name advertised to clients.
	ServerName = "cppx"

	// ExpandToolName and RunToolName are the registered tool names.
	ExpandToolName = "cppx_expand"
	RunToolName    = "cppx_run"

	instructions = `This server compiles and runs single-file C++ programs and flattens their local includes.

- Use cppx_run to compile and run a source file, optionally with stdin input. Set expand to also receive the flattened source when compilation succeeds.
- Use cppx_expand to inline every #include "..." of a file into one self-contained source without compiling it.`
)

// NewServer creates the MCP server with both tools registered.
func NewServer(version string, expandHandler *ExpandHandler, runHandler *RunHandler) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: version},
		&mcp.ServerOptions{Instructions: instructions},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name: ExpandToolName,
		Description: `Inline local #include "..." directives of a C++ file recursively and return the flattened source.

Includes are resolved relative to the including file, then relative to workspaceRoot. Each inlined directive is kept as a "// #include" comment. Headers included twice are inlined once. System includes (<...>) and unresolvable includes are left untouched.`,
	}, expandHandler.Handle)

	mcp.AddTool(server, &mcp.Tool{
		Name: RunToolName,
		Description: `Compile and run a C++ file and return its captured output.

The result reports whether compilation succeeded and the exit code. When expand is true and compilation succeeded, the flattened source is appended. Runs are serialized: a new call cancels a run still in progress.`,
	}, runHandler.Handle)

	return server
}

// Serve runs server on stdin/stdout until ctx is canceled or the client
// disconnects.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
