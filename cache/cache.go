package cache

import (
	"context"
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNotFound   = errors.New("cache: key not found")
	ErrClosed     = errors.New("cache: cache is closed")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
	ErrInvalidTTL = errors.New("cache: ttl must be positive")
	ErrTooLarge   = errors.New("cache: entry exceeds store capacity")
)

// Resolver recomputes or fetches the authoritative value for a key.
// It is invoked only when no tier holds a fresh entry. Errors are propagated
// verbatim to every caller waiting on the resolution; nothing is cached on
// error.
type Resolver func(ctx context.Context, key string) ([]byte, error)

// Store is a single cache tier.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: I/O-backed implementations must honor cancellation/deadlines.
// - Errors: Get returns (Entry{}, false, nil) on miss; transport problems are
//   returned as errors and classified by the coordinator, never wrapped into
//   fake misses.
type Store interface {
	// Get retrieves the entry for key. The returned entry's TTL is the
	// remaining lifetime, so it can be replayed into another tier.
	Get(ctx context.Context, key string) (Entry, bool, error)

	// Set stores an entry. The entry's TTL must be positive.
	Set(ctx context.Context, entry Entry) error

	// Delete removes an entry. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a fresh entry is present for key.
	Exists(ctx context.Context, key string) (bool, error)

	// DeleteTag removes every entry carrying tag and returns the number of
	// entries removed.
	DeleteTag(ctx context.Context, tag string) (int, error)

	// Flush removes every entry in the store.
	Flush(ctx context.Context) error

	// Name identifies the tier for logging and metrics (e.g. "l1", "l2").
	Name() string

	// Close releases resources owned by the store.
	Close() error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
