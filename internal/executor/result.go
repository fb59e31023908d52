package executor

import "time"

// RunResult holds the structured outcome of one test-tool invocation.
// It is created once per invocation and never mutated afterwards.
type RunResult struct {
	RunID   string   `json:"run_id"`            // unique identifier for this run
	Profile string   `json:"profile,omitempty"` // profile name, stamped by the runner
	Command []string `json:"command"`           // full command line, argv order

	// Started reports whether the child process was launched at all.
	// When false, ExitCode is meaningless and FailureReason describes
	// the startup error.
	Started   bool `json:"started"`
	Succeeded bool `json:"succeeded"`
	ExitCode  int  `json:"exit_code"`

	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	Truncated bool   `json:"truncated"` // true if output exceeded the size cap

	// FailureReason is set when the process could not be started or was
	// killed by the run timeout. Empty for ordinary non-zero exits.
	FailureReason string `json:"failure_reason,omitempty"`

	Duration time.Duration `json:"duration_ns"`
}
