package health

import (
	"context"
	"time"

	"github.com/jonwraymond/tiercache/resilience"
)

// Pinger is the part of a shared store the checker needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreCheckerConfig configures the shared-store health checker.
type StoreCheckerConfig struct {
	// Timeout bounds the ping. Default: 2s.
	Timeout time.Duration

	// BreakerState optionally reports the circuit guarding the store. When
	// the circuit is open the checker reports degraded without pinging:
	// the outage is already known and being handled.
	BreakerState func() resilience.State
}

// StoreChecker reports the health of the shared cache tier.
type StoreChecker struct {
	store  Pinger
	config StoreCheckerConfig
}

// NewStoreChecker creates a checker for the shared store.
func NewStoreChecker(store Pinger, config StoreCheckerConfig) *StoreChecker {
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}
	return &StoreChecker{store: store, config: config}
}

// Name returns the name of this checker.
func (s *StoreChecker) Name() string {
	return "shared-store"
}

// Check pings the shared store. An open or probing circuit short-circuits
// to degraded; the cache keeps serving from the local tier in that state.
func (s *StoreChecker) Check(ctx context.Context) Result {
	if s.config.BreakerState != nil {
		switch state := s.config.BreakerState(); state {
		case resilience.StateOpen:
			return Degraded("circuit open, serving from local tier only").WithDetails(map[string]any{
				"circuit": state.String(),
			})
		case resilience.StateHalfOpen:
			return Degraded("circuit probing shared store").WithDetails(map[string]any{
				"circuit": state.String(),
			})
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	if err := s.store.Ping(ctx); err != nil {
		return Unhealthy("shared store unreachable", err)
	}

	return Healthy("shared store reachable").WithDetails(map[string]any{
		"ping_ms": float64(time.Since(start).Microseconds()) / 1000,
	})
}
