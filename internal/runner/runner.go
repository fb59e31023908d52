// Package runner resolves run profiles into full test-tool invocations and
// delegates them to the executor. It is consumed by the CLI, the watch loop
// and the MCP server.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/deixis/testpilot/internal/config"
	"github.com/deixis/testpilot/internal/executor"
	"github.com/deixis/testpilot/internal/profile"
)

// CommandExecutor runs one child-process invocation to completion.
// Implemented by executor.Executor.
type CommandExecutor interface {
	Execute(ctx context.Context, inv executor.Invocation) (*executor.RunResult, error)
}

// Runner composes a profile with the configured tool invocation and runs it.
// Sequential calls run one at a time from the caller's perspective; callers
// invoking Run concurrently get concurrent, uncoordinated child processes.
type Runner struct {
	Config    *config.Config
	Executor  CommandExecutor
	Workspace string // working directory for the tool; artifact dirs resolve against it

	mu   sync.Mutex
	last *executor.RunResult
}

// Run builds the command for p, merges its environment overrides over the
// configured ones, ensures artifact directories exist, and executes the tool.
// The executor's result is returned unchanged apart from the profile stamp.
func (r *Runner) Run(ctx context.Context, p profile.Profile) (*executor.RunResult, error) {
	if err := r.ensureArtifactDirs(); err != nil {
		return nil, err
	}

	argv := append(r.Config.Tool.Invocation(), p.Args...)

	env := make(map[string]string, len(r.Config.Env)+len(p.Env))
	for k, v := range r.Config.Env {
		env[k] = v
	}
	for k, v := range p.Env {
		// Profile overrides win over configured ones.
		env[k] = v
	}

	res, err := r.Executor.Execute(ctx, executor.Invocation{
		Argv: argv,
		Dir:  r.Workspace,
		Env:  env,
	})
	if err != nil {
		return nil, fmt.Errorf("running profile %s: %w", p.Name, err)
	}

	res.Profile = p.Name

	r.mu.Lock()
	r.last = res
	r.mu.Unlock()

	return res, nil
}

// LastResult returns the most recent result, or nil before the first run.
func (r *Runner) LastResult() *executor.RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// ensureArtifactDirs creates the directories the test suite writes
// screenshots, videos, traces and HAR captures into.
func (r *Runner) ensureArtifactDirs() error {
	for _, dir := range r.Config.Artifacts.ArtifactDirs() {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(r.Workspace, dir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating artifact directory %s: %w", dir, err)
		}
	}
	return nil
}
