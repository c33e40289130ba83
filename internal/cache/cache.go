// Package cache defines the key/value store the appraisal read and write
// paths share. Entries carry their own TTL; an expired or absent key is a
// miss, never an error. Backends live in subpackages (memory for tests and
// single-node deployments, s3 for shared object storage).
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks store-level failures (connection refused, bucket
// gone). Callers on the read path are expected to treat it as a miss so a
// cache outage degrades to recomputation instead of request failure.
var ErrUnavailable = errors.New("cache store unavailable")

// Store is a key/value store with per-entry TTL.
//
// Get returns the value and true on a live entry, false on absent or expired
// keys. Set overwrites unconditionally; the last writer wins. Wipe removes
// every entry and reports how many were dropped.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
	Wipe(ctx context.Context) (int, error)
}
