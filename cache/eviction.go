package cache

import (
	"container/heap"
	"container/list"
	"time"
)

// EvictionPolicy selects how an L1 store picks victims under capacity
// pressure.
type EvictionPolicy string

const (
	// EvictLRU evicts the least-recently-accessed entry.
	EvictLRU EvictionPolicy = "lru"

	// EvictLFU evicts the least-frequently-accessed entry, ties broken by
	// recency.
	EvictLFU EvictionPolicy = "lfu"

	// EvictTTL evicts the entry with the soonest expiry.
	EvictTTL EvictionPolicy = "ttl"
)

// Valid reports whether the policy names a known strategy.
func (p EvictionPolicy) Valid() bool {
	switch p {
	case EvictLRU, EvictLFU, EvictTTL, "":
		return true
	}
	return false
}

// evictionTracker keeps the bookkeeping a policy needs to pick victims.
// The owning store serializes all calls under its lock; trackers are not
// safe for concurrent use on their own.
type evictionTracker interface {
	// added records a new or overwritten entry.
	added(key string, expiresAt time.Time)

	// accessed records a read of an existing entry.
	accessed(key string)

	// removed drops all bookkeeping for key (delete, expiry, eviction).
	removed(key string)

	// victim returns the next key to evict, if any.
	victim() (string, bool)
}

func newEvictionTracker(p EvictionPolicy) evictionTracker {
	switch p {
	case EvictLFU:
		return newLFUTracker()
	case EvictTTL:
		return newTTLTracker()
	default:
		return newLRUTracker()
	}
}

// lruTracker orders keys by recency with a doubly-linked list.
// Front is most recent; victims come off the back.
type lruTracker struct {
	order *list.List
	elems map[string]*list.Element
}

func newLRUTracker() *lruTracker {
	return &lruTracker{
		order: list.New(),
		elems: make(map[string]*list.Element),
	}
}

func (l *lruTracker) added(key string, _ time.Time) {
	if e, ok := l.elems[key]; ok {
		l.order.MoveToFront(e)
		return
	}
	l.elems[key] = l.order.PushFront(key)
}

func (l *lruTracker) accessed(key string) {
	if e, ok := l.elems[key]; ok {
		l.order.MoveToFront(e)
	}
}

func (l *lruTracker) removed(key string) {
	if e, ok := l.elems[key]; ok {
		l.order.Remove(e)
		delete(l.elems, key)
	}
}

func (l *lruTracker) victim() (string, bool) {
	e := l.order.Back()
	if e == nil {
		return "", false
	}
	return e.Value.(string), true
}

// lfuTracker groups keys into frequency buckets. Each bucket is itself
// recency-ordered (oldest at the front), so ties among the least-frequent
// keys fall to the least-recently-accessed one.
type lfuTracker struct {
	items   map[string]*lfuItem
	buckets map[uint64]*list.List
	minFreq uint64
}

type lfuItem struct {
	key  string
	freq uint64
	elem *list.Element
}

func newLFUTracker() *lfuTracker {
	return &lfuTracker{
		items:   make(map[string]*lfuItem),
		buckets: make(map[uint64]*list.List),
	}
}

func (l *lfuTracker) added(key string, _ time.Time) {
	if _, ok := l.items[key]; ok {
		// Overwrite counts as an access.
		l.accessed(key)
		return
	}
	it := &lfuItem{key: key, freq: 1}
	l.items[key] = it
	it.elem = l.bucket(1).PushBack(it)
	l.minFreq = 1
}

func (l *lfuTracker) accessed(key string) {
	it, ok := l.items[key]
	if !ok {
		return
	}
	l.unlink(it)
	it.freq++
	it.elem = l.bucket(it.freq).PushBack(it)
}

func (l *lfuTracker) removed(key string) {
	it, ok := l.items[key]
	if !ok {
		return
	}
	l.unlink(it)
	delete(l.items, key)
}

func (l *lfuTracker) victim() (string, bool) {
	if len(l.items) == 0 {
		return "", false
	}
	b, ok := l.buckets[l.minFreq]
	if !ok {
		// minFreq went stale after a removal; recompute.
		l.minFreq = 0
		for f := range l.buckets {
			if l.minFreq == 0 || f < l.minFreq {
				l.minFreq = f
			}
		}
		b = l.buckets[l.minFreq]
	}
	return b.Front().Value.(*lfuItem).key, true
}

func (l *lfuTracker) bucket(freq uint64) *list.List {
	b, ok := l.buckets[freq]
	if !ok {
		b = list.New()
		l.buckets[freq] = b
	}
	return b
}

func (l *lfuTracker) unlink(it *lfuItem) {
	b := l.buckets[it.freq]
	b.Remove(it.elem)
	if b.Len() == 0 {
		delete(l.buckets, it.freq)
	}
}

// ttlTracker keeps keys in a min-heap ordered by expiry, so the entry
// closest to expiring is always the victim.
type ttlTracker struct {
	items map[string]*ttlItem
	heap  ttlHeap
}

type ttlItem struct {
	key       string
	expiresAt time.Time
	index     int
}

func newTTLTracker() *ttlTracker {
	return &ttlTracker{items: make(map[string]*ttlItem)}
}

func (t *ttlTracker) added(key string, expiresAt time.Time) {
	if it, ok := t.items[key]; ok {
		it.expiresAt = expiresAt
		heap.Fix(&t.heap, it.index)
		return
	}
	it := &ttlItem{key: key, expiresAt: expiresAt}
	t.items[key] = it
	heap.Push(&t.heap, it)
}

func (t *ttlTracker) accessed(string) {}

func (t *ttlTracker) removed(key string) {
	if it, ok := t.items[key]; ok {
		heap.Remove(&t.heap, it.index)
		delete(t.items, key)
	}
}

func (t *ttlTracker) victim() (string, bool) {
	if len(t.heap) == 0 {
		return "", false
	}
	return t.heap[0].key, true
}

type ttlHeap []*ttlItem

func (h ttlHeap) Len() int { return len(h) }

func (h ttlHeap) Less(i, j int) bool { return h[i].expiresAt.Before(h[j].expiresAt) }

func (h ttlHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *ttlHeap) Push(x any) {
	it := x.(*ttlItem)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *ttlHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
