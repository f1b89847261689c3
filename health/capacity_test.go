package health

import (
	"context"
	"testing"

	"github.com/jonwraymond/tiercache/cache"
)

func usageOf(used, total int64) func() cache.MemoryUsage {
	return func() cache.MemoryUsage {
		return cache.MemoryUsage{Used: used, Available: total - used, Total: total}
	}
}

func TestCapacityChecker_Thresholds(t *testing.T) {
	tests := []struct {
		name string
		used int64
		want Status
	}{
		{"plenty of room", 10, StatusHealthy},
		{"just under warning", 89, StatusHealthy},
		{"above warning", 95, StatusDegraded},
		{"above critical", 99, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCapacityChecker(usageOf(tt.used, 100), CapacityCheckerConfig{
				WarningThreshold:  0.9,
				CriticalThreshold: 0.98,
			})
			if got := c.Check(context.Background()); got.Status != tt.want {
				t.Errorf("Check().Status = %v, want %v (%d/100 used)", got.Status, tt.want, tt.used)
			}
		})
	}
}

func TestCapacityChecker_Defaults(t *testing.T) {
	c := NewCapacityChecker(usageOf(0, 100), CapacityCheckerConfig{})

	if c.config.WarningThreshold != 0.9 {
		t.Errorf("WarningThreshold = %v, want 0.9", c.config.WarningThreshold)
	}
	if c.config.CriticalThreshold != 0.98 {
		t.Errorf("CriticalThreshold = %v, want 0.98", c.config.CriticalThreshold)
	}
}

func TestCapacityChecker_Details(t *testing.T) {
	c := NewCapacityChecker(usageOf(50, 100), CapacityCheckerConfig{})

	got := c.Check(context.Background())
	if got.Details["used_bytes"] != int64(50) {
		t.Errorf("used_bytes = %v, want 50", got.Details["used_bytes"])
	}
	if got.Details["usage_percent"] != 50.0 {
		t.Errorf("usage_percent = %v, want 50", got.Details["usage_percent"])
	}
}

func TestCapacityChecker_LiveStore(t *testing.T) {
	s := cache.NewMemoryStore(cache.MemoryConfig{MaxBytes: 100})
	defer s.Close()

	c := NewCapacityChecker(s.Usage, CapacityCheckerConfig{})
	if got := c.Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("Check().Status = %v, want healthy for empty store", got.Status)
	}
}

func TestCapacityChecker_CancelledContext(t *testing.T) {
	c := NewCapacityChecker(usageOf(0, 100), CapacityCheckerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := c.Check(ctx); got.Status != StatusUnhealthy {
		t.Errorf("Check().Status = %v, want unhealthy on cancelled context", got.Status)
	}
}
