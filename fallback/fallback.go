// Package fallback provides the last-known-good entity store consulted when
// a synchronous upstream call cannot be completed.
//
// Entries are written exclusively by the broker consumer path (entity change
// events) and read by the breaker fallback path. The store is deliberately
// unbounded and TTL-free: an entry is only ever replaced by a newer event for
// the same id, never expired, so a long upstream outage degrades to serving
// the last observed state instead of failing.
package fallback

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one cached entity snapshot. Payload holds the upstream
// representation verbatim; UpdatedAt records local arrival time, not the
// upstream change time.
type Entry struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is the storage backend for fallback entries.
// All backends must be safe for concurrent use.
type Store interface {
	// Name returns the backend name.
	Name() string

	// Get returns the entry for id.
	// Returns ErrEntryNotFound when no entry exists.
	Get(ctx context.Context, id string) (*Entry, error)

	// Set stores the entry, replacing any previous entry for the same id.
	Set(ctx context.Context, entry *Entry) error

	// Delete removes the entry for id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// Exists reports whether an entry for id is present.
	Exists(ctx context.Context, id string) bool

	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}
