package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func healthyChecker(name string) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		return Healthy("ok")
	})
}

func TestAggregator_CheckAll(t *testing.T) {
	a := NewAggregator()
	a.Register("one", healthyChecker("one"))
	a.Register("two", healthyChecker("two"))

	results := a.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("CheckAll() returned %d results, want 2", len(results))
	}
	for name, r := range results {
		if r.Status != StatusHealthy {
			t.Errorf("%s status = %v, want healthy", name, r.Status)
		}
		if r.Duration < 0 {
			t.Errorf("%s duration = %v, want >= 0", name, r.Duration)
		}
	}
}

func TestAggregator_CheckByName(t *testing.T) {
	a := NewAggregator()
	a.Register("one", healthyChecker("one"))

	r, err := a.Check(context.Background(), "one")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if r.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy", r.Status)
	}

	if _, err := a.Check(context.Background(), "nosuch"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(nosuch) error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_OverallStatus(t *testing.T) {
	a := NewAggregator()

	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", map[string]Result{}, StatusHealthy},
		{"all healthy", map[string]Result{"a": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"unhealthy wins", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_Timeout(t *testing.T) {
	a := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	a.Register("slow", NewCheckerFunc("slow", func(ctx context.Context) Result {
		time.Sleep(time.Second)
		return Healthy("too late")
	}))

	results := a.CheckAll(context.Background())
	r := results["slow"]
	if r.Status != StatusUnhealthy {
		t.Errorf("slow status = %v, want unhealthy on timeout", r.Status)
	}
	if !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("slow error = %v, want ErrCheckTimeout", r.Error)
	}
}

func TestAggregator_CheckerNames(t *testing.T) {
	a := NewAggregator()
	a.Register("b", healthyChecker("b"))
	a.Register("a", healthyChecker("a"))
	a.Register("b", healthyChecker("b")) // re-register keeps position

	names := a.CheckerNames()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("CheckerNames() = %v, want [b a]", names)
	}
}

func TestAggregator_Empty(t *testing.T) {
	a := NewAggregator()

	if results := a.CheckAll(context.Background()); len(results) != 0 {
		t.Errorf("CheckAll() on empty aggregator = %v, want empty", results)
	}
}
