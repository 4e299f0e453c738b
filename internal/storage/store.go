package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Bucket names for the persisted state buckets
const (
	BucketCatalog  = "catalog"
	BucketHistory  = "history"
	BucketBatchLog = "batch_log"
)

// ErrBucketNotFound is returned by Get for a bucket that was never written
var ErrBucketNotFound = errors.New("state bucket not found")

// Store persists named state buckets as opaque JSON documents.
// Implementations assume a single active writer: there is no cross-instance
// locking or optimistic versioning.
type Store interface {
	// Get returns the raw value of a bucket
	Get(ctx context.Context, bucket string) ([]byte, error)

	// Set replaces the value of a bucket
	Set(ctx context.Context, bucket string, value []byte) error

	// Reset replaces the bucket with a deep copy of the canonical value,
	// so later mutation of live state never corrupts the canonical template
	Reset(ctx context.Context, bucket string, canonical []byte) error

	// Ping checks backend connectivity
	Ping(ctx context.Context) error

	Close() error
}

// Load decodes a bucket into out. Missing or malformed state is absorbed:
// out is left untouched, a warning is logged for corruption, and false is
// returned so the caller falls back to its default.
func Load(ctx context.Context, s Store, bucket string, out interface{}) bool {
	data, err := s.Get(ctx, bucket)
	if err != nil {
		if !errors.Is(err, ErrBucketNotFound) {
			slog.Warn("state bucket read failed, using default", "bucket", bucket, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("state bucket malformed, using default", "bucket", bucket, "error", err)
		return false
	}
	return true
}

// Save encodes v and writes it to the bucket
func Save(ctx context.Context, s Store, bucket string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode bucket %s: %w", bucket, err)
	}
	if err := s.Set(ctx, bucket, data); err != nil {
		return fmt.Errorf("failed to write bucket %s: %w", bucket, err)
	}
	return nil
}
