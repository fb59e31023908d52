// Package mcp provides the testpilot MCP server, registering all tools and
// publishing model instructions.
package mcp

import (
	_ "embed"

	"github.com/deixis/testpilot"
	"github.com/deixis/testpilot/internal/report"
	"github.com/deixis/testpilot/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	runner   *runner.Runner
	store    report.Store
	renderer *report.Renderer
}

// NewServer creates an MCP server with all testpilot tools registered.
func NewServer(r *runner.Runner, store report.Store, renderer *report.Renderer) *mcp.Server {
	h := &handler{
		runner:   r,
		store:    store,
		renderer: renderer,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "testpilot", Version: testpilot.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "tp_profiles",
		Description: "List the run profiles testpilot can execute, with the arguments each one appends to the test-tool invocation.",
	}, h.profilesHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "tp_run",
		Description: `Run the test suite with a named profile and return the outcome.

Profiles select subsets of the suite (smoke, api, ui, integration, performance)
or change how it runs (parallel=N, coverage=MIN, browser=NAME). Results are
stored by run id for drill-down via tp_report.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "tp_report",
		Description: `Fetch a stored run by id, optionally writing its HTML report to a path.

Use the run_id from tp_run output. Without a path, returns the run summary and
captured output as text.`,
	}, h.reportHandler)

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
