package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/tiercache/observe"
	"github.com/jonwraymond/tiercache/resilience"
)

// Config configures a TieredCache.
type Config struct {
	// Name identifies this cache instance in logs, metrics and traces.
	// Default: "tiercache".
	Name string

	// L1 configures the process-local store.
	L1 MemoryConfig

	// L2 is the shared store. Nil runs the cache in L1+origin-only mode.
	L2 Store

	// Resolver recomputes values on a full miss. Nil means Get returns
	// ErrNotFound when no tier holds the key.
	Resolver Resolver

	// TTL governs entry lifetimes when callers pass no TTL. The zero
	// value means DefaultTTLPolicy.
	TTL TTLPolicy

	// AsyncL2Writes makes Set return after the L1 write, completing the
	// shared-store write in the background.
	AsyncL2Writes bool

	// L2MaxFailures is the consecutive-failure count that opens the
	// breaker. Default: 5.
	L2MaxFailures int

	// L2Cooldown is how long the breaker stays open before probing.
	// Default: 30s.
	L2Cooldown time.Duration

	// L2Timeout bounds each shared-store call on top of the store's own
	// operation timeout. An overrun counts as a transport failure.
	// Default: 1s.
	L2Timeout time.Duration

	// MaxConcurrentResolves caps concurrent origin resolutions across
	// distinct keys. Zero means unlimited.
	MaxConcurrentResolves int

	// ResolveWait is how long a resolution waits for a slot when the cap
	// is reached. Default: 10s (only used when MaxConcurrentResolves > 0).
	ResolveWait time.Duration

	// Observer supplies tracing, metrics and logging. Nil means noop.
	Observer observe.Observer
}

// TieredCache coordinates reads and writes across the local store, the
// shared store and the origin resolver.
//
// Reads go L1, then L2 through the circuit breaker, then the resolver with
// per-key coalescing; each hit backfills the faster tiers on the way up.
// Writes land in L1 synchronously and in L2 guarded by the breaker.
// Shared-store failures are absorbed and recorded; they never surface from
// Get, Set or Delete. Origin errors always surface verbatim.
type TieredCache struct {
	name     string
	l1       *MemoryStore
	l2       Store
	resolver Resolver
	ttl      TTLPolicy
	async    bool

	flights  *flightGroup
	breaker  *resilience.CircuitBreaker
	l2exec   *resilience.Executor
	sweep    *resilience.Executor
	bulkhead *resilience.Bulkhead

	stats *Stats
	rec   *observe.Recorder
	log   observe.Logger

	closed atomic.Bool
}

// New creates a cache instance. Instances are independent; construct one
// per logical cache and Close it when done.
func New(cfg Config) (*TieredCache, error) {
	if cfg.Name == "" {
		cfg.Name = "tiercache"
	}
	if !cfg.L1.Eviction.Valid() {
		return nil, fmt.Errorf("cache: unknown eviction policy %q", cfg.L1.Eviction)
	}
	if cfg.L2MaxFailures <= 0 {
		cfg.L2MaxFailures = 5
	}
	if cfg.L2Cooldown <= 0 {
		cfg.L2Cooldown = 30 * time.Second
	}
	if cfg.L2Timeout <= 0 {
		cfg.L2Timeout = time.Second
	}
	if cfg.ResolveWait <= 0 {
		cfg.ResolveWait = 10 * time.Second
	}
	if (cfg.TTL == TTLPolicy{}) {
		cfg.TTL = DefaultTTLPolicy()
	}

	meta := observe.CacheMeta{Name: cfg.Name}
	rec := observe.NewNoopRecorder(meta)
	if cfg.Observer != nil {
		var err error
		rec, err = observe.NewRecorder(cfg.Observer, meta)
		if err != nil {
			return nil, err
		}
	}
	log := rec.Logger()

	c := &TieredCache{
		name:     cfg.Name,
		l1:       NewMemoryStore(cfg.L1),
		l2:       cfg.L2,
		resolver: cfg.Resolver,
		ttl:      cfg.TTL,
		async:    cfg.AsyncL2Writes,
		flights:  newFlightGroup(),
		stats:    NewStats(),
		rec:      rec,
		log:      log,
	}

	c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: cfg.L2MaxFailures,
		Cooldown:    cfg.L2Cooldown,
		OnStateChange: func(from, to resilience.State) {
			log.Warn(context.Background(), "shared store circuit state changed",
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()},
			)
		},
	})
	c.l2exec = resilience.NewExecutor(
		resilience.WithCircuitBreaker(c.breaker),
		resilience.WithTimeout(cfg.L2Timeout),
	)
	c.sweep = resilience.NewExecutor(
		resilience.WithCircuitBreaker(c.breaker),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			Jitter: true,
			RetryIf: func(err error) bool {
				return err != nil && !errors.Is(err, resilience.ErrCircuitOpen)
			},
		})),
		resilience.WithTimeout(cfg.L2Timeout),
	)
	if cfg.MaxConcurrentResolves > 0 {
		c.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrentResolves,
			MaxWait:       cfg.ResolveWait,
		})
	}

	return c, nil
}

// Get retrieves the value for key, resolving through the configured
// Resolver on a full miss. Returns ErrNotFound when no tier holds the key
// and no resolver is configured.
func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.lookup(ctx, key, c.resolver, 0, nil)
}

// GetOrLoad is Get with a per-call resolver, TTL and tags for the resolved
// entry (cache-aside). A nil resolver falls back to the configured one.
func (c *TieredCache) GetOrLoad(ctx context.Context, key string, resolve Resolver, ttl time.Duration, tags ...string) ([]byte, error) {
	if resolve == nil {
		resolve = c.resolver
	}
	return c.lookup(ctx, key, resolve, ttl, tags)
}

func (c *TieredCache) lookup(ctx context.Context, key string, resolve Resolver, ttl time.Duration, tags []string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	ctx, end := c.rec.Begin(ctx, observe.OpGet)

	// L1: a hit that turns out expired is dropped by the store itself and
	// lands here as a miss.
	if e, ok, err := c.l1.Get(ctx, key); err != nil {
		end(string(TierL1), "error", err)
		return nil, err
	} else if ok {
		c.stats.hit(TierL1)
		end(string(TierL1), "hit", nil)
		return e.Value, nil
	}
	c.stats.miss(TierL1)

	// L2, guarded by the breaker.
	if c.l2 != nil {
		var e Entry
		var ok bool
		err := c.l2exec.Execute(ctx, func(ctx context.Context) error {
			var err error
			e, ok, err = c.l2.Get(ctx, key)
			return err
		})
		switch {
		case err != nil:
			c.noteL2(ctx, "get", key, err)
		case ok:
			c.stats.hit(TierL2)
			// Backfill with the remaining lifetime so both tiers expire
			// the key at the same moment.
			if err := c.l1.Set(ctx, e); err != nil && !errors.Is(err, ErrTooLarge) {
				end(string(TierL2), "hit", err)
				return nil, err
			}
			end(string(TierL2), "hit", nil)
			return e.Value, nil
		default:
			c.stats.miss(TierL2)
		}
	}

	// Full miss.
	c.stats.fullMiss()
	if resolve == nil {
		end("", "miss", nil)
		return nil, ErrNotFound
	}

	value, shared, err := c.flights.Do(ctx, key, func(fctx context.Context) ([]byte, error) {
		return c.resolveAndStore(fctx, key, resolve, ttl, tags)
	})
	if shared {
		c.stats.coalescedWait()
	}
	if err != nil {
		end(string(TierOrigin), "error", err)
		return nil, err
	}
	end(string(TierOrigin), "resolved", nil)
	return value, nil
}

// resolveAndStore runs once per coalesced flight: it resolves the value and
// populates both cache tiers before any waiter is released.
func (c *TieredCache) resolveAndStore(ctx context.Context, key string, resolve Resolver, ttl time.Duration, tags []string) ([]byte, error) {
	c.stats.resolve()

	var value []byte
	var err error
	if c.bulkhead != nil {
		if berr := c.bulkhead.Execute(ctx, func(ctx context.Context) error {
			value, err = resolve(ctx, key)
			// Resolver errors are the caller's, not slot failures.
			return nil
		}); berr != nil {
			err = berr
		}
	} else {
		value, err = resolve(ctx, key)
	}
	if err != nil {
		c.stats.resolveError()
		return nil, err
	}

	entry := NewEntry(key, value, c.ttl.Effective(ttl), tags...)
	if err := c.l1.Set(ctx, entry); err == nil {
		c.stats.set(TierL1)
	}
	c.writeL2(ctx, entry)
	return value, nil
}

// Set writes the value to L1 synchronously and to L2 through the breaker.
// A shared-store failure never fails the operation: the local tier always
// reflects the new value, and cross-process consistency is eventual within
// the entry's TTL.
func (c *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	ctx, end := c.rec.Begin(ctx, observe.OpSet)

	entry := NewEntry(key, value, c.ttl.Effective(ttl), tags...)
	if err := c.l1.Set(ctx, entry); err != nil {
		end(string(TierL1), "error", err)
		return err
	}
	c.stats.set(TierL1)
	c.stats.setOp()

	if c.l2 != nil {
		if c.async {
			go c.writeL2(context.WithoutCancel(ctx), entry)
		} else {
			c.writeL2(ctx, entry)
		}
	}

	end(string(TierL1), "ok", nil)
	return nil
}

// Delete removes the key from L1 and, best-effort, from L2. It always
// reports success: an unconfirmed shared-store removal is left to expire
// via its own TTL (at-least-once semantics).
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	ctx, end := c.rec.Begin(ctx, observe.OpDelete)

	if err := c.l1.Delete(ctx, key); err != nil {
		end(string(TierL1), "error", err)
		return err
	}
	c.stats.delete(TierL1)

	if c.l2 != nil {
		err := c.l2exec.Execute(ctx, func(ctx context.Context) error {
			return c.l2.Delete(ctx, key)
		})
		if err != nil {
			c.noteL2(ctx, "delete", key, err)
		} else {
			c.stats.delete(TierL2)
		}
	}

	c.stats.deleteOp()
	end("", "ok", nil)
	return nil
}

// Stats returns a snapshot of cache activity, including L1 memory usage.
func (c *TieredCache) Stats() Snapshot {
	snap := c.stats.Snapshot()
	m := c.l1.Metrics()
	snap.Evictions = m.Evictions
	snap.Expirations = m.Expirations
	snap.Memory = m.Usage
	return snap
}

// BreakerState reports the shared-store circuit state.
func (c *TieredCache) BreakerState() resilience.State {
	return c.breaker.State()
}

// Name returns the cache instance name.
func (c *TieredCache) Name() string {
	return c.name
}

// Close releases both tiers. Idempotent; operations after Close return
// ErrClosed.
func (c *TieredCache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.l1.Close()
	if c.l2 != nil {
		if cerr := c.l2.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// writeL2 writes through to the shared store, absorbing failures.
func (c *TieredCache) writeL2(ctx context.Context, entry Entry) {
	if c.l2 == nil {
		return
	}
	err := c.l2exec.Execute(ctx, func(ctx context.Context) error {
		return c.l2.Set(ctx, entry)
	})
	if err != nil {
		c.noteL2(ctx, "set", entry.Key, err)
		return
	}
	c.stats.set(TierL2)
}

// noteL2 records an absorbed shared-store failure. A skip (open breaker)
// is routine and logged at debug; a transport failure is worth a warning.
func (c *TieredCache) noteL2(ctx context.Context, op, key string, err error) {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.stats.l2Skip()
		c.log.Debug(ctx, "shared store call skipped, circuit open",
			observe.Field{Key: "op", Value: op},
			observe.Field{Key: "key", Value: key},
		)
		return
	}
	c.stats.l2Error()
	c.log.Warn(ctx, "shared store error absorbed",
		observe.Field{Key: "op", Value: op},
		observe.Field{Key: "key", Value: key},
		observe.Field{Key: "error", Value: err.Error()},
	)
}
