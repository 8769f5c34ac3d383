package catalog

import (
	"context"
	"sync"
)

// MemoryStore keeps snapshots in process memory. It backs tests and
// terminals configured without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	branches map[int64]map[string]Row
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{branches: make(map[int64]map[string]Row)}
}

// Replace implements Store.
func (s *MemoryStore) Replace(_ context.Context, branchID int64, rows []Row) error {
	snapshot := make(map[string]Row, len(rows))
	for _, row := range rows {
		snapshot[row.SKU] = row
	}
	s.mu.Lock()
	s.branches[branchID] = snapshot
	s.mu.Unlock()
	return nil
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(_ context.Context, sku string) (Row, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  Row
		found bool
	)
	for _, snapshot := range s.branches {
		row, ok := snapshot[sku]
		if !ok {
			continue
		}
		if !found || row.SyncedAt.After(best.SyncedAt) {
			best, found = row, true
		}
	}
	return best, found, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context, branchID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.branches[branchID]), nil
}
