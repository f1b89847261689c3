package cache

import (
	"context"
	"sync"
)

// flightGroup coalesces concurrent resolutions of the same key: at most one
// resolver call is in flight per key per process, and every concurrent
// caller shares its outcome.
//
// This is the singleflight pattern with one refinement: a caller whose
// context is cancelled detaches without disturbing the shared call, and the
// call itself is cancelled only when the last waiter has detached.
type flightGroup struct {
	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	done    chan struct{}
	cancel  context.CancelFunc
	waiters int
	value   []byte
	err     error
}

func newFlightGroup() *flightGroup {
	return &flightGroup{flights: make(map[string]*flight)}
}

// Do runs fn for key, deduplicating concurrent calls. The second return
// value reports whether the result was shared with an earlier caller.
//
// fn runs on a context detached from any single caller, so one caller's
// cancellation cannot poison the result for the others.
func (g *flightGroup) Do(ctx context.Context, key string, fn func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	g.mu.Lock()
	f, shared := g.flights[key]
	if !shared {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{done: make(chan struct{}), cancel: cancel, waiters: 1}
		g.flights[key] = f
		g.mu.Unlock()

		go func() {
			value, err := fn(fctx)

			g.mu.Lock()
			f.value, f.err = value, err
			delete(g.flights, key)
			g.mu.Unlock()

			close(f.done)
			cancel()
		}()
	} else {
		f.waiters++
		g.mu.Unlock()
	}

	select {
	case <-f.done:
		return f.value, shared, f.err
	case <-ctx.Done():
		g.mu.Lock()
		f.waiters--
		if f.waiters == 0 {
			f.cancel()
		}
		g.mu.Unlock()
		return nil, shared, ctx.Err()
	}
}
