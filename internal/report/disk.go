package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/deixis/testpilot/internal/executor"
)

// DiskStore writes run results as JSON files under a runs directory.
type DiskStore struct {
	mu   sync.Mutex
	base string // parent directory, e.g. test-results
	dir  string // lazily-created runs directory
}

// NewDiskStore creates a DiskStore rooted at base. The runs directory
// (base/runs) is created lazily on the first Save.
func NewDiskStore(base string) *DiskStore {
	return &DiskStore{base: base}
}

// Save writes a run result as a JSON file to disk.
func (s *DiskStore) Save(result *executor.RunResult) error {
	dir, err := s.ensureDir()
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshalling run %s: %w", result.RunID, err)
	}
	path := filepath.Join(dir, result.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run %s: %w", result.RunID, err)
	}
	return nil
}

// Load reads a run result from disk.
func (s *DiskStore) Load(runID string) (*executor.RunResult, error) {
	dir, err := s.ensureDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, runID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", runID, err)
	}
	var result executor.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshalling run %s: %w", runID, err)
	}
	return &result, nil
}

func (s *DiskStore) ensureDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		return s.dir, nil
	}
	dir := filepath.Join(s.base, "runs")
	if s.base == "" {
		var err error
		dir, err = os.MkdirTemp("", "testpilot-runs-*")
		if err != nil {
			return "", fmt.Errorf("creating runs directory: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating runs directory: %w", err)
	}
	s.dir = dir
	return dir, nil
}
