package cache

import "time"

// TTLPolicy governs entry lifetimes.
type TTLPolicy struct {
	// DefaultTTL is the TTL to use when a caller passes none.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Longer TTLs are clamped.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultTTLPolicy returns the default lifetime policy.
// DefaultTTL: 5 minutes, MaxTTL: 1 hour.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}
}

// Effective returns the TTL to use, applying the default and clamping.
func (p TTLPolicy) Effective(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
