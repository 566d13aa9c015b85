package fallback

import (
	"context"
)

// ChainStore layers stores, typically L1 memory over L2 Redis.
//
// Reads walk front to back and promote a hit into the layers before it,
// so a restarted process refills its memory layer from Redis on first read.
// Writes go to every layer (write-through).
type ChainStore struct {
	name   string
	stores []Store
}

// NewChainStore creates a layered store.
func NewChainStore(name string, stores ...Store) *ChainStore {
	return &ChainStore{
		name:   name,
		stores: stores,
	}
}

// Name returns the store name.
func (s *ChainStore) Name() string {
	return s.name
}

// Get queries layers front to back and promotes a hit into earlier layers.
func (s *ChainStore) Get(ctx context.Context, id string) (*Entry, error) {
	hitIndex := -1
	var entry *Entry

	for i, store := range s.stores {
		e, err := store.Get(ctx, id)
		if err == nil {
			entry = e
			hitIndex = i
			break
		}
	}

	if hitIndex == -1 {
		return nil, ErrEntryNotFound
	}

	// Promote into earlier layers, best effort.
	for i := 0; i < hitIndex; i++ {
		_ = s.stores[i].Set(ctx, entry)
	}

	return entry, nil
}

// Set writes through to all layers; the last error wins.
func (s *ChainStore) Set(ctx context.Context, entry *Entry) error {
	var lastErr error
	for _, store := range s.stores {
		if err := store.Set(ctx, entry); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Delete removes the entry from all layers.
func (s *ChainStore) Delete(ctx context.Context, id string) error {
	var lastErr error
	for _, store := range s.stores {
		if err := store.Delete(ctx, id); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Exists reports whether any layer holds the entry.
func (s *ChainStore) Exists(ctx context.Context, id string) bool {
	for _, store := range s.stores {
		if store.Exists(ctx, id) {
			return true
		}
	}
	return false
}

// Len returns the count from the LAST layer, which holds the full set.
func (s *ChainStore) Len(ctx context.Context) (int, error) {
	if len(s.stores) == 0 {
		return 0, nil
	}
	return s.stores[len(s.stores)-1].Len(ctx)
}

// Close closes all layers; the last error wins.
func (s *ChainStore) Close() error {
	var lastErr error
	for _, store := range s.stores {
		if err := store.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
