package report

import (
	"github.com/deixis/testpilot/internal/executor"
)

// Store persists and retrieves run results by run ID.
type Store interface {
	Save(result *executor.RunResult) error
	Load(runID string) (*executor.RunResult, error)
}
