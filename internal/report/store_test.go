package report

import (
	"fmt"
	"sync"
	"testing"

	"github.com/deixis/testpilot/internal/executor"
)

func result(id string) *executor.RunResult {
	return &executor.RunResult{
		RunID:     id,
		Profile:   "smoke",
		Command:   []string{"python3", "-m", "pytest", "tests/"},
		Started:   true,
		Succeeded: true,
	}
}

func TestDiskStore_RoundTrip(t *testing.T) {
	s := NewDiskStore(t.TempDir())

	in := result("run-disk-1")
	in.Stdout = "collected 3 items"
	in.ExitCode = 0
	if err := s.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := s.Load("run-disk-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.RunID != in.RunID || out.Profile != in.Profile || out.Stdout != in.Stdout {
		t.Errorf("loaded %+v, want %+v", out, in)
	}
	if !out.Started || !out.Succeeded {
		t.Error("status flags lost in round trip")
	}
}

func TestDiskStore_LoadMissing(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	if _, err := s.Load("no-such-run"); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}

// countingStore records Save/Load traffic to the backing layer.
type countingStore struct {
	mu    sync.Mutex
	saves int
	loads int
	data  map[string]*executor.RunResult
}

func newCountingStore() *countingStore {
	return &countingStore{data: make(map[string]*executor.RunResult)}
}

func (s *countingStore) Save(r *executor.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.data[r.RunID] = r
	return nil
}

func (s *countingStore) Load(runID string) (*executor.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	r, ok := s.data[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return r, nil
}

func TestLRUStore_SaveDelegates(t *testing.T) {
	back := newCountingStore()
	s := NewLRUStore(2, back)

	if err := s.Save(result("a")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if back.saves != 1 {
		t.Errorf("backing saves = %d, want 1", back.saves)
	}
}

func TestLRUStore_CacheHitSkipsBacking(t *testing.T) {
	back := newCountingStore()
	s := NewLRUStore(2, back)

	_ = s.Save(result("a"))
	if _, err := s.Load("a"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.loads != 0 {
		t.Errorf("backing loads = %d, want 0 (cache hit)", back.loads)
	}
}

func TestLRUStore_EvictsOldest(t *testing.T) {
	back := newCountingStore()
	s := NewLRUStore(2, back)

	_ = s.Save(result("a"))
	_ = s.Save(result("b"))
	_ = s.Save(result("c")) // evicts a

	if _, err := s.Load("a"); err != nil {
		t.Fatalf("Load(a): %v", err)
	}
	if back.loads != 1 {
		t.Errorf("backing loads = %d, want 1 (a was evicted)", back.loads)
	}

	// c stayed cached throughout.
	if _, err := s.Load("c"); err != nil {
		t.Fatalf("Load(c): %v", err)
	}
	if back.loads != 1 {
		t.Errorf("backing loads = %d, want 1 (c still cached)", back.loads)
	}
}

func TestLRUStore_LoadPromotesIntoCache(t *testing.T) {
	back := newCountingStore()
	_ = back.Save(result("cold"))

	s := NewLRUStore(2, back)

	if _, err := s.Load("cold"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.loads != 1 {
		t.Fatalf("backing loads = %d, want 1", back.loads)
	}

	if _, err := s.Load("cold"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.loads != 1 {
		t.Errorf("backing loads = %d, want 1 (promoted into cache)", back.loads)
	}
}

func TestLRUStore_LoadMissingPropagates(t *testing.T) {
	s := NewLRUStore(2, newCountingStore())
	if _, err := s.Load("nope"); err == nil {
		t.Fatal("expected error from backing store")
	}
}
