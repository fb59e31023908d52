package report

import (
	"container/list"
	"sync"

	"github.com/deixis/testpilot/internal/executor"
)

// LRUStore is an in-memory LRU cache that delegates to a backing Store on
// miss. It keeps the most recent runs hot so watch mode and the MCP server
// can re-render reports without touching disk.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // front = most recent; values are *executor.RunResult
	items map[string]*list.Element
}

// NewLRUStore creates an LRU cache with the given capacity that delegates
// to back on cache misses. Capacity must be >= 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save writes the result to the LRU cache and delegates to the backing store.
func (s *LRUStore) Save(result *executor.RunResult) error {
	s.mu.Lock()
	s.insert(result)
	s.mu.Unlock()

	return s.back.Save(result)
}

// Load checks the LRU cache first. On miss, loads from the backing store
// and promotes the result into the cache.
func (s *LRUStore) Load(runID string) (*executor.RunResult, error) {
	s.mu.Lock()
	if el, ok := s.items[runID]; ok {
		s.order.MoveToFront(el)
		res := el.Value.(*executor.RunResult)
		s.mu.Unlock()
		return res, nil
	}
	s.mu.Unlock()

	result, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.insert(result)
	s.mu.Unlock()

	return result, nil
}

// insert adds or refreshes an entry, evicting the oldest past capacity.
// Callers hold s.mu.
func (s *LRUStore) insert(result *executor.RunResult) {
	if el, ok := s.items[result.RunID]; ok {
		el.Value = result
		s.order.MoveToFront(el)
		return
	}
	s.items[result.RunID] = s.order.PushFront(result)
	if s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*executor.RunResult).RunID)
	}
}
