package cache

import (
	"testing"
	"time"
)

func TestDefaultTTLPolicy(t *testing.T) {
	p := DefaultTTLPolicy()

	if p.DefaultTTL != 5*time.Minute {
		t.Errorf("DefaultTTL = %v, want 5m", p.DefaultTTL)
	}
	if p.MaxTTL != time.Hour {
		t.Errorf("MaxTTL = %v, want 1h", p.MaxTTL)
	}
}

func TestTTLPolicy_Effective(t *testing.T) {
	p := TTLPolicy{DefaultTTL: 5 * time.Minute, MaxTTL: time.Hour}

	tests := []struct {
		name     string
		override time.Duration
		want     time.Duration
	}{
		{"zero uses default", 0, 5 * time.Minute},
		{"negative uses default", -time.Second, 5 * time.Minute},
		{"explicit passes through", 10 * time.Minute, 10 * time.Minute},
		{"clamped to max", 2 * time.Hour, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Effective(tt.override); got != tt.want {
				t.Errorf("Effective(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}

func TestTTLPolicy_NoMax(t *testing.T) {
	p := TTLPolicy{DefaultTTL: time.Minute}

	if got := p.Effective(24 * time.Hour); got != 24*time.Hour {
		t.Errorf("Effective(24h) = %v, want 24h (no max configured)", got)
	}
}
