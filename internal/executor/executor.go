// Package executor launches the external test tool as a child process and
// captures its outcome as data. Non-zero exits and startup failures are both
// ordinary results, never errors; errors are reserved for caller mistakes
// (empty argv, missing working directory).
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Default limits applied when the corresponding Executor field is zero.
const (
	DefaultTimeout   = 30 * time.Minute
	DefaultMaxOutput = 4 << 20 // 4 MiB per stream
)

// Invocation describes one child-process run. Env entries are merged over
// the ambient process environment; overrides win.
type Invocation struct {
	Argv []string
	Dir  string
	Env  map[string]string
}

// Executor runs invocations synchronously, buffering output to completion.
type Executor struct {
	Timeout   time.Duration
	MaxOutput int // bytes per stream
}

// Execute launches the invocation and waits for it to finish.
//
// The returned error is non-nil only for invalid invocations. Everything the
// child process does — including refusing to start — comes back as a
// RunResult: a missing executable yields Started=false with a FailureReason,
// a failing test suite yields Succeeded=false with its exit code.
func (e *Executor) Execute(ctx context.Context, inv Invocation) (*RunResult, error) {
	if len(inv.Argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}
	if inv.Dir != "" {
		info, err := os.Stat(inv.Dir)
		if err != nil {
			return nil, fmt.Errorf("working directory %q: %w", inv.Dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("working directory %q is not a directory", inv.Dir)
		}
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := e.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = mergeEnv(os.Environ(), inv.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput}

	res := &RunResult{
		RunID:   uuid.New().String(),
		Command: append([]string(nil), inv.Argv...),
	}

	start := time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Truncated = stdout.Len() >= maxOutput || stderr.Len() >= maxOutput

	switch {
	case runErr == nil:
		res.Started = true
		res.Succeeded = true

	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		// The child was killed by the run timeout.
		res.Started = true
		res.FailureReason = "timeout"
		if exitErr := asExitError(runErr); exitErr != nil {
			res.ExitCode = exitErr.ExitCode()
		}

	default:
		if exitErr := asExitError(runErr); exitErr != nil {
			// The tool ran and reported failure. Normal result.
			res.Started = true
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Could not be launched: missing executable, permission denied.
			res.FailureReason = runErr.Error()
		}
	}

	return res, nil
}

func asExitError(err error) *exec.ExitError {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return nil
}

// mergeEnv applies overrides on top of the ambient environment. Keys are
// emitted in sorted order so the child sees a stable environment.
func mergeEnv(ambient []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return ambient
	}

	merged := make(map[string]string, len(ambient)+len(overrides))
	for _, kv := range ambient {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				merged[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	for k, v := range overrides {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
