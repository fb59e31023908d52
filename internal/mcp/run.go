package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/testpilot/internal/executor"
	"github.com/deixis/testpilot/internal/profile"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type profilesParams struct{}

func (h *handler) profilesHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ profilesParams) (*sdkmcp.CallToolResult, any, error) {
	var b strings.Builder

	fmt.Fprintln(&b, "Profiles:")
	for _, name := range []string{"smoke", "api", "ui", "integration", "performance"} {
		p, err := profile.Lookup(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "  %-14s %s\n", name, strings.Join(p.Args, " "))
	}
	fmt.Fprintf(&b, "  %-14s -n <workers> -v (default workers: %d)\n", "parallel[=N]", profile.DefaultWorkers)
	fmt.Fprintf(&b, "  %-14s --cov=src ... --cov-fail-under=<min> -v (default min: %d)\n", "coverage[=MIN]", profile.DefaultMinCoverage)
	fmt.Fprintf(&b, "  %-14s -v with %s=<name> (%s)\n", "browser=NAME", profile.BrowserEnvVar, strings.Join(profile.KnownBrowsers, ", "))

	return textResult(b.String())
}

type runParams struct {
	Profile string `json:"profile,omitempty" jsonschema:"Profile spec, e.g. smoke, api, parallel=8, coverage=90, browser=firefox. Defaults to smoke."`
	Report  string `json:"report,omitempty" jsonschema:"Optional path to write an HTML report of this run."`
}

func (h *handler) runHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params runParams) (*sdkmcp.CallToolResult, any, error) {
	spec := params.Profile
	if spec == "" {
		spec = "smoke"
	}

	p, err := profile.Lookup(spec)
	if err != nil {
		return errorResult(err.Error())
	}

	res, err := h.runner.Run(ctx, p)
	if err != nil {
		return errorResult(fmt.Sprintf("run failed: %v", err))
	}

	// A storage failure must not hide the test outcome; it is appended
	// to the summary instead.
	saveErr := h.store.Save(res)

	if params.Report != "" {
		if err := h.renderer.WriteReport(res, params.Report); err != nil {
			return errorResult(fmt.Sprintf("writing report: %v", err))
		}
	}

	text := formatRun(res)
	if saveErr != nil {
		text += fmt.Sprintf("\nNote: run could not be persisted: %v\n", saveErr)
	}
	return textResult(text)
}

// maxStderrLines bounds the stderr excerpt included in tool output.
const maxStderrLines = 20

func formatRun(res *executor.RunResult) string {
	var b strings.Builder

	if res.Succeeded {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Run: %s\n", res.RunID)
	fmt.Fprintf(&b, "Profile: %s\n", res.Profile)
	fmt.Fprintf(&b, "Command: %s\n", strings.Join(res.Command, " "))

	switch {
	case !res.Started:
		fmt.Fprintf(&b, "Failure: %s\n", res.FailureReason)
	case res.FailureReason != "":
		fmt.Fprintf(&b, "Exit code: %d\n", res.ExitCode)
		fmt.Fprintf(&b, "Failure: %s\n", res.FailureReason)
	default:
		fmt.Fprintf(&b, "Exit code: %d\n", res.ExitCode)
	}

	if !res.Succeeded && res.Stderr != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Stderr:")
		fmt.Fprintln(&b, lastLines(res.Stderr, maxStderrLines))
	}

	return b.String()
}

// lastLines returns the trailing maxLines lines of s.
func lastLines(s string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	omitted := len(lines) - maxLines
	return fmt.Sprintf("... (%d earlier lines)\n%s", omitted, strings.Join(lines[omitted:], "\n"))
}
