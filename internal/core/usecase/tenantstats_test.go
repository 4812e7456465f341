package usecase

import (
	"math"
	"testing"
)

func TestTenantStatsRollingRate(t *testing.T) {
	stats := NewTenantStats(4, 0.25)

	if rate := stats.Observe("acme", 0.9); rate != 0 {
		t.Errorf("rate after one high observation = %v, want 0", rate)
	}
	if rate := stats.Observe("acme", 0.1); rate != 0.5 {
		t.Errorf("rate = %v, want 0.5", rate)
	}
	stats.Observe("acme", 0.1)
	if rate := stats.Observe("acme", 0.1); rate != 0.75 {
		t.Errorf("rate = %v, want 0.75", rate)
	}

	// Window wraps: the initial 0.9 falls out.
	if rate := stats.Observe("acme", 0.1); rate != 1 {
		t.Errorf("rate after wrap = %v, want 1", rate)
	}
}

func TestTenantStatsIsolatedPerTenant(t *testing.T) {
	stats := NewTenantStats(4, 0.25)

	stats.Observe("acme", 0.1)
	if rate := stats.Observe("globex", 0.9); rate != 0 {
		t.Errorf("globex rate = %v, want 0 despite acme's low scores", rate)
	}
}

func TestTenantStatsThresholdIsStrict(t *testing.T) {
	stats := NewTenantStats(4, 0.25)

	if rate := stats.Observe("acme", 0.25); rate != 0 {
		t.Errorf("observation at the threshold counted as low: rate = %v", rate)
	}
	if rate := stats.Observe("acme", 0.2499); math.Abs(rate-0.5) > 1e-9 {
		t.Errorf("observation below the threshold not counted: rate = %v", rate)
	}
}
