package resilience

import (
	"testing"
	"time"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(RateLimiterConfig{Rate: 2, Burst: 2})
	rl.now = func() time.Time { return now }
	rl.lastRefill = now

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("expected burst of 2")
	}
	if rl.Allow() {
		t.Fatal("expected third call to be limited")
	}
	if d := rl.RetryAfter(); d <= 0 || d > 500*time.Millisecond {
		t.Errorf("unexpected retry after %v", d)
	}

	now = now.Add(500 * time.Millisecond)
	if !rl.Allow() {
		t.Error("expected one token after 500ms at 2/s")
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	if rl.config.Rate != 1 || rl.config.Burst != 1 {
		t.Errorf("unexpected defaults %+v", rl.config)
	}
}
