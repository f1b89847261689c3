// Package health provides health checking primitives for the cache.
//
// A Checker is any component that can report its health status. The Status
// type represents the health state: Healthy, Degraded, or Unhealthy.
//
// Two checkers ship with the package. StoreChecker pings the shared store
// and folds in the circuit breaker state, so an open circuit shows up as
// degraded rather than as a hard failure. CapacityChecker watches local
// tier memory consumption against configurable thresholds.
//
// Use Aggregator to combine checkers into a single composite check:
//
//	agg := health.NewAggregator()
//	agg.Register("shared-store", storeChecker)
//	agg.Register("capacity", capChecker)
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
package health
