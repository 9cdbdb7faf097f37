package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/finsight/core"
)

// InMemoryStore is a process-local Store keeping entries newest-first in a
// slice. Suited for tests and single-process prototypes; use the sqlite
// implementation for durability across runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []core.MemoryEntry
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Record implements Store. It cannot fail, matching the contract that
// persistence problems never block the caller's main flow.
func (s *InMemoryStore) Record(_ context.Context, e core.MemoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// prepend to keep newest-first order
	s.entries = append([]core.MemoryEntry{e}, s.entries...)
}

// QueryRecent implements Store.
func (s *InMemoryStore) QueryRecent(_ context.Context, q Query) (Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Time{}
	if q.MaxAge > 0 {
		cutoff = time.Now().Add(-q.MaxAge)
	}

	var matched []core.MemoryEntry
	for _, e := range s.entries {
		if q.SubjectID != "" && e.SubjectID != q.SubjectID {
			continue
		}
		if q.AgentType != "" && e.AgentType != q.AgentType {
			continue
		}
		if q.OnlyCompleted && e.Status != core.StatusCompleted {
			continue
		}
		if !cutoff.IsZero() && e.CreatedAt.Before(cutoff) {
			continue
		}
		matched = append(matched, e)
		if q.Limit > 0 && len(matched) == q.Limit {
			break
		}
	}
	return &sliceCursor{entries: matched, pos: -1}, nil
}

// Len returns the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

type sliceCursor struct {
	entries []core.MemoryEntry
	pos     int
}

func (c *sliceCursor) Next() bool {
	if c.pos+1 >= len(c.entries) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Entry() core.MemoryEntry { return c.entries[c.pos] }

func (c *sliceCursor) Err() error { return nil }

func (c *sliceCursor) Close() error { return nil }
