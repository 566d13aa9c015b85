package fallback

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps fallback entries in Redis so they survive process
// restarts and are shared across replicas.
//
// Entries are written with zero expiration: the fallback contract is
// last-known-good, not a cache, so Redis must never age entries out on its
// own. Replacement only happens through Set.
type RedisStore struct {
	name      string
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a Redis-backed store.
// The client lifecycle is owned by the caller.
func NewRedisStore(name string, client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{
		name:      name,
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Name returns the store name.
func (s *RedisStore) Name() string {
	return s.name
}

func (s *RedisStore) buildKey(id string) string {
	if s.keyPrefix == "" {
		return id
	}
	return s.keyPrefix + id
}

// Get returns the entry for id, or ErrEntryNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.buildKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEntryNotFound
		}
		return nil, ErrStoreGet.Wrap(err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, ErrSerialize.Wrap(err)
	}
	return &entry, nil
}

// Set stores the entry without expiration.
func (s *RedisStore) Set(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return ErrSerialize.Wrap(err)
	}

	// TTL 0: entries never expire, only newer events replace them.
	if err := s.client.Set(ctx, s.buildKey(entry.ID), data, 0).Err(); err != nil {
		return ErrStoreSet.Wrap(err)
	}
	return nil
}

// Delete removes the entry for id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.buildKey(id)).Err(); err != nil {
		return ErrStoreDelete.Wrap(err)
	}
	return nil
}

// Exists reports whether an entry for id is present.
func (s *RedisStore) Exists(ctx context.Context, id string) bool {
	n, err := s.client.Exists(ctx, s.buildKey(id)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// Len counts entries under the store prefix using SCAN.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	var cursor uint64
	count := 0

	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.keyPrefix+"*", 100).Result()
		if err != nil {
			return 0, ErrStoreGet.Wrap(err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count, nil
}

// Close is a no-op: the Redis client is managed by its owner.
func (s *RedisStore) Close() error {
	return nil
}
