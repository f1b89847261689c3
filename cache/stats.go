package cache

import "sync/atomic"

// Tier identifies a level of the cache hierarchy.
type Tier string

const (
	// TierL1 is the process-local entry store.
	TierL1 Tier = "l1"
	// TierL2 is the shared store.
	TierL2 Tier = "l2"
	// TierOrigin is the authoritative resolver.
	TierOrigin Tier = "origin"
)

// Stats accumulates operation counters. All increments are atomic and
// fire-and-forget; they never gate the hot path and never fail an operation.
type Stats struct {
	l1Hits    atomic.Uint64
	l1Misses  atomic.Uint64
	l2Hits    atomic.Uint64
	l2Misses  atomic.Uint64
	l1Sets    atomic.Uint64
	l2Sets    atomic.Uint64
	l1Deletes atomic.Uint64
	l2Deletes atomic.Uint64

	// fullMisses counts lookups no cache tier could serve.
	fullMisses atomic.Uint64
	sets       atomic.Uint64
	deletes    atomic.Uint64

	resolves      atomic.Uint64
	resolveErrors atomic.Uint64
	coalesced     atomic.Uint64

	l2Skips  atomic.Uint64
	l2Errors atomic.Uint64
	partials atomic.Uint64
}

// NewStats creates an empty collector.
func NewStats() *Stats { return &Stats{} }

func (s *Stats) hit(t Tier) {
	switch t {
	case TierL1:
		s.l1Hits.Add(1)
	case TierL2:
		s.l2Hits.Add(1)
	}
}

func (s *Stats) miss(t Tier) {
	switch t {
	case TierL1:
		s.l1Misses.Add(1)
	case TierL2:
		s.l2Misses.Add(1)
	}
}

func (s *Stats) set(t Tier) {
	switch t {
	case TierL1:
		s.l1Sets.Add(1)
	case TierL2:
		s.l2Sets.Add(1)
	}
}

func (s *Stats) delete(t Tier) {
	switch t {
	case TierL1:
		s.l1Deletes.Add(1)
	case TierL2:
		s.l2Deletes.Add(1)
	}
}

func (s *Stats) fullMiss()      { s.fullMisses.Add(1) }
func (s *Stats) setOp()         { s.sets.Add(1) }
func (s *Stats) deleteOp()      { s.deletes.Add(1) }
func (s *Stats) resolve()       { s.resolves.Add(1) }
func (s *Stats) resolveError()  { s.resolveErrors.Add(1) }
func (s *Stats) coalescedWait() { s.coalesced.Add(1) }
func (s *Stats) l2Skip()        { s.l2Skips.Add(1) }
func (s *Stats) l2Error()       { s.l2Errors.Add(1) }
func (s *Stats) partial()       { s.partials.Add(1) }

// TierStats holds per-tier counters.
type TierStats struct {
	Hits    uint64
	Misses  uint64
	Sets    uint64
	Deletes uint64
}

// Snapshot is a point-in-time view of cache activity.
//
// Hits counts lookups served from any cache tier; Misses counts lookups no
// tier could serve, so Hits+Misses equals the number of completed lookups
// and HitRate = Hits / (Hits + Misses) is always in [0, 1].
type Snapshot struct {
	Hits    uint64
	Misses  uint64
	Sets    uint64
	Deletes uint64
	HitRate float64

	L1 TierStats
	L2 TierStats

	OriginResolves uint64
	OriginErrors   uint64

	// CoalescedWaits counts lookups that piggybacked on another caller's
	// in-flight resolution instead of resolving themselves.
	CoalescedWaits uint64

	// L2Skips counts shared-store calls skipped by the open breaker;
	// L2Errors counts absorbed transport failures.
	L2Skips  uint64
	L2Errors uint64

	// InvalidationPartials counts invalidations that completed on L1 but
	// could not be confirmed on L2.
	InvalidationPartials uint64

	Evictions   uint64
	Expirations uint64

	Memory MemoryUsage
}

// Snapshot returns current counter values.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		L1: TierStats{
			Hits:    s.l1Hits.Load(),
			Misses:  s.l1Misses.Load(),
			Sets:    s.l1Sets.Load(),
			Deletes: s.l1Deletes.Load(),
		},
		L2: TierStats{
			Hits:    s.l2Hits.Load(),
			Misses:  s.l2Misses.Load(),
			Sets:    s.l2Sets.Load(),
			Deletes: s.l2Deletes.Load(),
		},
		Misses:               s.fullMisses.Load(),
		Sets:                 s.sets.Load(),
		Deletes:              s.deletes.Load(),
		OriginResolves:       s.resolves.Load(),
		OriginErrors:         s.resolveErrors.Load(),
		CoalescedWaits:       s.coalesced.Load(),
		L2Skips:              s.l2Skips.Load(),
		L2Errors:             s.l2Errors.Load(),
		InvalidationPartials: s.partials.Load(),
	}
	snap.Hits = snap.L1.Hits + snap.L2.Hits

	if total := snap.Hits + snap.Misses; total > 0 {
		snap.HitRate = float64(snap.Hits) / float64(total)
	}
	return snap
}
