package fallback

import (
	"context"
	"encoding/json"
	"time"

	"github.com/KOMKZ/go-aegis-framework/logger"
	"go.uber.org/zap"
)

// Resolver is the application-facing facade over a Store.
//
// The write side is driven by the event consumer: every entity change event
// is applied through Put, keyed by the payload id, so re-applying the same
// event is a harmless overwrite. The read side is the circuit breaker's
// fallback path.
type Resolver struct {
	store Store
	log   *logger.CtxZapLogger

	// now is swappable for tests.
	now func() time.Time
}

// NewResolver creates a resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{
		store: store,
		log:   logger.GetLogger("aegis"),
		now:   time.Now,
	}
}

// Get returns the last-known-good entry for id.
// Returns ErrEntryNotFound when the cache is cold for this id.
func (r *Resolver) Get(ctx context.Context, id string) (*Entry, error) {
	return r.store.Get(ctx, id)
}

// Put records a new payload for id, replacing any previous entry.
// Called only by the event consumer path.
func (r *Resolver) Put(ctx context.Context, id string, payload json.RawMessage) error {
	entry := &Entry{
		ID:        id,
		Payload:   payload,
		UpdatedAt: r.now(),
	}

	if err := r.store.Set(ctx, entry); err != nil {
		r.log.ErrorCtx(ctx, "❌ Fallback entry write failed",
			zap.String("id", id),
			zap.Error(err))
		return err
	}

	r.log.DebugCtx(ctx, "Fallback entry updated",
		zap.String("id", id),
		zap.Int("payload_bytes", len(payload)))
	return nil
}

// Delete removes the entry for id, e.g. on an entity deletion event.
func (r *Resolver) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, id)
}

// Exists reports whether an entry for id is present.
func (r *Resolver) Exists(ctx context.Context, id string) bool {
	return r.store.Exists(ctx, id)
}

// Len returns the number of cached entries.
func (r *Resolver) Len(ctx context.Context) (int, error) {
	return r.store.Len(ctx)
}

// Store exposes the underlying store.
func (r *Resolver) Store() Store {
	return r.store
}
