// Package cache provides a tiered read-through cache for expensive
// computations keyed by string identifiers.
//
// A TieredCache coordinates a process-local bounded store (L1), an optional
// shared Redis store (L2) guarded by a circuit breaker, and a caller-supplied
// origin resolver invoked only on a full miss. Concurrent misses for the same
// key are coalesced into a single resolution. Entries carry tags that can be
// invalidated across both tiers.
package cache
