package executor

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestExecutor() *Executor {
	return &Executor{
		Timeout:   10 * time.Second,
		MaxOutput: 1 << 20,
	}
}

func TestExecute_Success(t *testing.T) {
	e := newTestExecutor()
	res, err := e.Execute(context.Background(), Invocation{Argv: []string{"echo", "hello"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Started {
		t.Error("Started = false, want true")
	}
	if !res.Succeeded {
		t.Error("Succeeded = false, want true")
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "hello") {
		t.Errorf("Stdout = %q, want to contain 'hello'", res.Stdout)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(res.Command) != 2 || res.Command[0] != "echo" {
		t.Errorf("Command = %v, want [echo hello]", res.Command)
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	e := newTestExecutor()
	res, err := e.Execute(context.Background(), Invocation{Argv: []string{"sh", "-c", "exit 2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Started {
		t.Error("Started = false, want true")
	}
	if res.Succeeded {
		t.Error("Succeeded = true, want false")
	}
	if res.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", res.ExitCode)
	}
	if res.FailureReason != "" {
		t.Errorf("FailureReason = %q, want empty for ordinary exit", res.FailureReason)
	}
}

func TestExecute_BinaryNotFound(t *testing.T) {
	e := newTestExecutor()
	res, err := e.Execute(context.Background(), Invocation{Argv: []string{"nonexistent-binary-xyz-123"}})
	if err != nil {
		t.Fatalf("startup failure must be data, got error: %v", err)
	}
	if res.Started {
		t.Error("Started = true, want false")
	}
	if res.Succeeded {
		t.Error("Succeeded = true, want false")
	}
	if res.FailureReason == "" {
		t.Error("FailureReason is empty, want startup error description")
	}
}

func TestExecute_EmptyArgv(t *testing.T) {
	e := newTestExecutor()
	if _, err := e.Execute(context.Background(), Invocation{}); err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestExecute_MissingWorkingDirectory(t *testing.T) {
	e := newTestExecutor()
	_, err := e.Execute(context.Background(), Invocation{
		Argv: []string{"echo"},
		Dir:  "/nonexistent/path/xyz",
	})
	if err == nil {
		t.Fatal("expected error for missing working directory")
	}
}

func TestExecute_WorkingDirectory(t *testing.T) {
	e := newTestExecutor()
	dir := t.TempDir()
	res, err := e.Execute(context.Background(), Invocation{Argv: []string{"pwd"}, Dir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Stdout, dir) {
		t.Errorf("Stdout = %q, want to contain %q", res.Stdout, dir)
	}
}

func TestExecute_EnvOverride(t *testing.T) {
	e := newTestExecutor()
	res, err := e.Execute(context.Background(), Invocation{
		Argv: []string{"sh", "-c", "echo $TESTPILOT_PROBE"},
		Env:  map[string]string{"TESTPILOT_PROBE": "override-wins"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Stdout, "override-wins") {
		t.Errorf("Stdout = %q, want env override to reach the child", res.Stdout)
	}
}

func TestExecute_OutputTruncation(t *testing.T) {
	e := newTestExecutor()
	e.MaxOutput = 100

	res, err := e.Execute(context.Background(), Invocation{
		Argv: []string{"sh", "-c", "dd if=/dev/zero bs=200 count=1 2>/dev/null"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(res.Stdout) > e.MaxOutput {
		t.Errorf("len(Stdout) = %d, want <= %d", len(res.Stdout), e.MaxOutput)
	}
}

func TestExecute_Timeout(t *testing.T) {
	e := newTestExecutor()
	e.Timeout = 100 * time.Millisecond

	res, err := e.Execute(context.Background(), Invocation{Argv: []string{"sleep", "10"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Succeeded {
		t.Error("Succeeded = true, want false after timeout")
	}
	if res.FailureReason != "timeout" {
		t.Errorf("FailureReason = %q, want %q", res.FailureReason, "timeout")
	}
}

func TestMergeEnv_OverridesWin(t *testing.T) {
	env := mergeEnv([]string{"A=ambient", "B=keep"}, map[string]string{"A": "override"})

	var gotA, gotB string
	for _, kv := range env {
		switch {
		case strings.HasPrefix(kv, "A="):
			gotA = kv
		case strings.HasPrefix(kv, "B="):
			gotB = kv
		}
	}
	if gotA != "A=override" {
		t.Errorf("A = %q, want override to win", gotA)
	}
	if gotB != "B=keep" {
		t.Errorf("B = %q, want ambient value kept", gotB)
	}
}
