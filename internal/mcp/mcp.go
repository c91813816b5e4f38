// Package mcp provides the execgate MCP server, exposing the gateway as
// tools over stdio or streamable HTTP.
package mcp

import (
	_ "embed"

	"github.com/deixis/execgate"
	"github.com/deixis/execgate/internal/gateway"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	gw *gateway.Gateway
}

// NewServer creates an MCP server with all execgate tools registered.
func NewServer(gw *gateway.Gateway) *mcp.Server {
	h := &handler{gw: gw}

	s := mcp.NewServer(&mcp.Implementation{Name: "execgate", Version: execgate.Version}, &mcp.ServerOptions{
		Instructions: Instructions,
	})

	mcp.AddTool(s, &mcp.Tool{
		Name: "execute_command",
		Description: `Run a command line through the host shell and return its output.

Pipes, redirection and chaining follow the shell grammar. Output is stdout, or stderr when
stdout is empty. The Exit line reports the exit code; a non-zero exit is not a tool error.
Results are stored for drill-down via inspect_execution.`,
	}, h.executeHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "inspect_execution",
		Description: `Show the stored record of an earlier execute_command run.

Use the run_id from the Run line of an execute_command result. The record separates
stdout from stderr and includes exit code, outcome, timing and truncation.`,
	}, h.inspectHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
