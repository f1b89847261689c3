package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxBytes is the default aggregate capacity for a MemoryStore.
const DefaultMaxBytes = 64 << 20

// MemoryConfig configures the in-process (L1) store.
type MemoryConfig struct {
	// MaxBytes bounds the aggregate Size() of stored entries.
	// Default: DefaultMaxBytes.
	MaxBytes int64

	// Eviction selects the victim strategy under capacity pressure.
	// Default: EvictLRU.
	Eviction EvictionPolicy

	// CleanupInterval is how often a background sweep removes expired
	// entries that are never read again. Zero disables the sweep; expired
	// entries are then dropped lazily on read.
	CleanupInterval time.Duration
}

// MemoryStore is the process-local cache tier. It is bounded by aggregate
// entry size, evicts synchronously on Set, and never touches the network.
// Eviction is silent: it does not error and does not affect other tiers.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	tracker evictionTracker
	tags    map[string]map[string]struct{}
	used    int64
	max     int64
	policy  EvictionPolicy
	closed  bool

	evictions   uint64
	expirations uint64

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryStore creates a bounded in-memory store.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	s := &MemoryStore{
		entries: make(map[string]*Entry),
		tracker: newEvictionTracker(cfg.Eviction),
		tags:    make(map[string]map[string]struct{}),
		max:     cfg.MaxBytes,
		policy:  cfg.Eviction,
		stop:    make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go s.sweep(cfg.CleanupInterval)
	}
	return s
}

// Get retrieves an entry. An expired entry is dropped and reported as a miss.
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Entry{}, false, ErrClosed
	}
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if e.Expired() {
		s.removeLocked(key)
		s.expirations++
		return Entry{}, false, nil
	}
	s.tracker.accessed(key)
	return *e, true, nil
}

// Set stores an entry, evicting victims until it fits. An entry larger than
// the store's total capacity is rejected with ErrTooLarge.
func (s *MemoryStore) Set(_ context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	size := int64(entry.Size())
	if size > s.max {
		return ErrTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	// Overwrite removes the old entry entirely so the eviction loop can
	// never double-release it.
	s.removeLocked(entry.Key)

	for s.used+size > s.max {
		victim, ok := s.tracker.victim()
		if !ok {
			break
		}
		s.removeLocked(victim)
		s.evictions++
	}

	e := entry
	s.entries[entry.Key] = &e
	s.used += size
	s.tracker.added(entry.Key, entry.ExpiresAt())
	for _, tag := range entry.Tags {
		set, ok := s.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			s.tags[tag] = set
		}
		set[entry.Key] = struct{}{}
	}
	return nil
}

// Delete removes an entry. Idempotent - no error on miss.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.removeLocked(key)
	return nil
}

// Exists reports whether a fresh entry is present. It does not count as an
// access for eviction purposes.
func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if e.Expired() {
		s.removeLocked(key)
		s.expirations++
		return false, nil
	}
	return true, nil
}

// DeleteTag removes every entry carrying tag.
func (s *MemoryStore) DeleteTag(_ context.Context, tag string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	set, ok := s.tags[tag]
	if !ok {
		return 0, nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	for _, k := range keys {
		s.removeLocked(k)
	}
	return len(keys), nil
}

// Flush removes every entry.
func (s *MemoryStore) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.resetLocked()
	return nil
}

// Name identifies the tier.
func (s *MemoryStore) Name() string { return "l1" }

// Close stops the background sweep and drops all entries. Idempotent.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.resetLocked()
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// MemoryUsage describes L1 capacity consumption in bytes.
type MemoryUsage struct {
	Used      int64
	Available int64
	Total     int64
}

// Usage returns the store's current capacity consumption.
func (s *MemoryStore) Usage() MemoryUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MemoryUsage{
		Used:      s.used,
		Available: s.max - s.used,
		Total:     s.max,
	}
}

// MemoryMetrics contains store lifecycle counters.
type MemoryMetrics struct {
	Entries     int
	Evictions   uint64
	Expirations uint64
	Usage       MemoryUsage
}

// Metrics returns current store metrics.
func (s *MemoryStore) Metrics() MemoryMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MemoryMetrics{
		Entries:     len(s.entries),
		Evictions:   s.evictions,
		Expirations: s.expirations,
		Usage: MemoryUsage{
			Used:      s.used,
			Available: s.max - s.used,
			Total:     s.max,
		},
	}
}

// removeLocked drops an entry and all of its bookkeeping. Caller holds mu.
func (s *MemoryStore) removeLocked(key string) {
	e, ok := s.entries[key]
	if !ok {
		return
	}
	delete(s.entries, key)
	s.used -= int64(e.Size())
	s.tracker.removed(key)
	s.untagLocked(e)
}

func (s *MemoryStore) untagLocked(e *Entry) {
	for _, tag := range e.Tags {
		set, ok := s.tags[tag]
		if !ok {
			continue
		}
		delete(set, e.Key)
		if len(set) == 0 {
			delete(s.tags, tag)
		}
	}
}

func (s *MemoryStore) resetLocked() {
	s.entries = make(map[string]*Entry)
	s.tags = make(map[string]map[string]struct{})
	s.tracker = newEvictionTracker(s.policy)
	s.used = 0
}

// sweep periodically removes expired entries so unread keys do not pin
// capacity until their next access.
func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.deleteExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) deleteExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	for key, e := range s.entries {
		if now.After(e.ExpiresAt()) {
			s.removeLocked(key)
			s.expirations++
		}
	}
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
