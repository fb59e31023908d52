package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type reportParams struct {
	RunID string `json:"run_id" jsonschema:"Run id from tp_run output."`
	Path  string `json:"path,omitempty" jsonschema:"Optional destination for the HTML report. Without it, the run summary and captured output are returned as text."`
}

func (h *handler) reportHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params reportParams) (*sdkmcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	res, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("loading run %s: %v", params.RunID, err))
	}

	if params.Path != "" {
		if err := h.renderer.WriteReport(res, params.Path); err != nil {
			return errorResult(fmt.Sprintf("writing report: %v", err))
		}
		return textResult(fmt.Sprintf("Report for run %s written to %s\n", params.RunID, params.Path))
	}

	var b strings.Builder
	b.WriteString(formatRun(res))
	if res.Stdout != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Stdout:")
		fmt.Fprintln(&b, lastLines(res.Stdout, 100))
	}
	return textResult(b.String())
}
