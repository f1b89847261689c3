// Package resilience provides failure-isolation patterns for cache tier
// calls.
//
// The shared store is a network dependency that can degrade or disappear;
// the origin resolver is an expensive computation that must not be
// stampeded. The patterns here keep either situation from cascading:
//
//   - Circuit Breaker: stops calling a failing shared store after a run of
//     failures, probing again after a cooldown.
//
//   - Timeout: bounds how long a shared-store call may take; an overrun is
//     treated like any other transport failure.
//
//   - Retry: bounded backoff for best-effort work such as invalidation
//     sweeps against the shared store.
//
//   - Bulkhead: caps concurrent origin resolutions so a burst of distinct
//     cold keys cannot exhaust the process.
//
// Patterns compose through Executor:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithTimeout(250*time.Millisecond),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return sharedStore.Set(ctx, entry)
//	})
package resilience
