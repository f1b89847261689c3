package cache

import "time"

// Entry is a single cached value with its lifecycle metadata.
//
// An entry is logically expired once now > CreatedAt + TTL; an expired entry
// must never be served as fresh, regardless of which tier still holds it.
type Entry struct {
	// Key is the opaque, conventionally namespaced identifier
	// (e.g. "estimate:<uuid>", "pricing:<hash>").
	Key string

	// Value is the opaque payload. The cache never inspects or copies it;
	// (de)serialization is the caller's contract.
	Value []byte

	// CreatedAt is when the entry was written.
	CreatedAt time.Time

	// TTL is the entry's lifetime from CreatedAt. Must be positive.
	TTL time.Duration

	// Tags are non-unique labels used only for invalidation, never lookup.
	Tags []string

	// SizeHint is the entry's approximate size in bytes for capacity
	// accounting. Zero means len(Value).
	SizeHint int
}

// NewEntry creates an entry stamped at the current time.
func NewEntry(key string, value []byte, ttl time.Duration, tags ...string) Entry {
	return Entry{
		Key:       key,
		Value:     value,
		CreatedAt: time.Now(),
		TTL:       ttl,
		Tags:      tags,
	}
}

// ExpiresAt returns the entry's logical expiry time.
func (e Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

// Expired reports whether the entry is logically expired.
func (e Entry) Expired() bool {
	return time.Now().After(e.ExpiresAt())
}

// Remaining returns the remaining lifetime, or 0 if expired.
func (e Entry) Remaining() time.Duration {
	d := time.Until(e.ExpiresAt())
	if d < 0 {
		return 0
	}
	return d
}

// Size returns the entry's accounted size in bytes.
func (e Entry) Size() int {
	if e.SizeHint > 0 {
		return e.SizeHint
	}
	return len(e.Value)
}

// Validate checks the entry's invariants before storage.
func (e Entry) Validate() error {
	if err := ValidateKey(e.Key); err != nil {
		return err
	}
	if e.TTL <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
