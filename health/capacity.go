package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/tiercache/cache"
)

// CapacityCheckerConfig configures the local-tier capacity checker.
type CapacityCheckerConfig struct {
	// WarningThreshold is the used fraction that triggers degraded status.
	// Value should be between 0 and 1. Default: 0.9 (90%)
	WarningThreshold float64

	// CriticalThreshold is the used fraction that triggers unhealthy status.
	// Value should be between 0 and 1. Default: 0.98 (98%)
	CriticalThreshold float64
}

// CapacityChecker reports how full the local cache tier is. A full tier is
// not broken, but it means every write now evicts, so hit rates suffer.
type CapacityChecker struct {
	usage  func() cache.MemoryUsage
	config CapacityCheckerConfig
}

// NewCapacityChecker creates a checker over a usage source, typically
// MemoryStore.Usage.
func NewCapacityChecker(usage func() cache.MemoryUsage, config CapacityCheckerConfig) *CapacityChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.9
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.98
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = config.WarningThreshold
	}
	return &CapacityChecker{usage: usage, config: config}
}

// Name returns the name of this checker.
func (c *CapacityChecker) Name() string {
	return "capacity"
}

// Check performs the capacity health check.
func (c *CapacityChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	u := c.usage()
	if u.Total <= 0 {
		return Healthy("capacity unknown")
	}
	ratio := float64(u.Used) / float64(u.Total)

	details := map[string]any{
		"used_bytes":    u.Used,
		"total_bytes":   u.Total,
		"usage_percent": ratio * 100,
	}

	if ratio >= c.config.CriticalThreshold {
		return Unhealthy(
			fmt.Sprintf("local tier full: %.1f%%", ratio*100),
			ErrCheckFailed,
		).WithDetails(details)
	}
	if ratio >= c.config.WarningThreshold {
		return Degraded(
			fmt.Sprintf("local tier nearly full: %.1f%%", ratio*100),
		).WithDetails(details)
	}
	return Healthy(
		fmt.Sprintf("local tier usage normal: %.1f%%", ratio*100),
	).WithDetails(details)
}
