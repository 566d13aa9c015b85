package fallback

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
)

// cloneEntry copies an entry including its payload bytes, so neither side
// of the store boundary can mutate the other's view.
func cloneEntry(e *Entry) *Entry {
	cp := *e
	if e.Payload != nil {
		cp.Payload = append(json.RawMessage(nil), e.Payload...)
	}
	return &cp
}

// MemoryStore is an in-process fallback store.
//
// A mutex-guarded map is sufficient here: entries are small, writes arrive
// at entity-change-event rate, and the working set is bounded by the number
// of distinct upstream entities. No eviction, no TTL.
type MemoryStore struct {
	name string
	mu   sync.RWMutex
	data map[string]*Entry

	hits   atomic.Int64
	misses atomic.Int64
	writes atomic.Int64
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name: name,
		data: make(map[string]*Entry),
	}
}

// Name returns the store name.
func (s *MemoryStore) Name() string {
	return s.name
}

// Get returns the entry for id, or ErrEntryNotFound.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.data[id]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return nil, ErrEntryNotFound
	}

	s.hits.Add(1)
	return cloneEntry(entry), nil
}

// Set stores the entry, last write wins.
func (s *MemoryStore) Set(ctx context.Context, entry *Entry) error {
	cp := cloneEntry(entry)

	s.mu.Lock()
	s.data[entry.ID] = cp
	s.mu.Unlock()

	s.writes.Add(1)
	return nil
}

// Delete removes the entry for id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
	return nil
}

// Exists reports whether an entry for id is present.
func (s *MemoryStore) Exists(ctx context.Context, id string) bool {
	s.mu.RLock()
	_, ok := s.data[id]
	s.mu.RUnlock()
	return ok
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*Entry)
	return nil
}

// Stats returns hit/miss/write counters since creation.
func (s *MemoryStore) Stats() (hits, misses, writes int64) {
	return s.hits.Load(), s.misses.Load(), s.writes.Load()
}
