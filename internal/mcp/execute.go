package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/deixis/execgate/internal/gateway"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type executeParams struct {
	Command string `json:"command" jsonschema:"the command line to run, interpreted by the host shell (e.g. ls -la | head)"`
}

func (h *handler) executeHandler(ctx context.Context, req *mcp.CallToolRequest, params executeParams) (*mcp.CallToolResult, any, error) {
	if params.Command == "" {
		return errorResult("command is required")
	}

	resp, err := h.gw.Execute(ctx, params.Command)
	if err != nil {
		return errorResult(fmt.Sprintf("Refused (%d): %v", gateway.ErrorStatus(err), err))
	}

	text := formatExecute(resp)
	if resp.Status != http.StatusOK {
		return errorResult(text)
	}
	return textResult(text)
}

func formatExecute(resp *gateway.Response) string {
	var b strings.Builder
	res := resp.Result

	fmt.Fprintf(&b, "Run: %s\n", res.RunID)
	fmt.Fprintf(&b, "Outcome: %s\n", res.Outcome)
	if code, ok := res.Code(); ok {
		fmt.Fprintf(&b, "Exit: %d\n", code)
	} else {
		fmt.Fprintln(&b, "Exit: none")
	}
	if res.Truncated {
		fmt.Fprintln(&b, "Truncated: output exceeded the size cap")
	}
	fmt.Fprintln(&b)
	b.WriteString(resp.Body)

	return b.String()
}
