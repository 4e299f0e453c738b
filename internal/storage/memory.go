package storage

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-process map. Used in tests and as
// the fallback backend when no external store is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string][]byte)}
}

// Get returns a copy of the bucket value
func (m *MemoryStore) Get(ctx context.Context, bucket string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.buckets[bucket]
	if !ok {
		return nil, ErrBucketNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Set stores a copy of the value
func (m *MemoryStore) Set(ctx context.Context, bucket string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := make([]byte, len(value))
	copy(data, value)
	m.buckets[bucket] = data
	return nil
}

// Reset replaces the bucket with a copy of the canonical value
func (m *MemoryStore) Reset(ctx context.Context, bucket string, canonical []byte) error {
	return m.Set(ctx, bucket, canonical)
}

// Ping always succeeds
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
