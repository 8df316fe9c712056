package retry

import (
	"testing"
	"time"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
)

func testPolicy() domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxAttempts:    5,
		BaseDelay:      1 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

func TestPreJitterDelay_ExponentialGrowth(t *testing.T) {
	b := NewBackoff()
	p := testPolicy()

	// 1s, 2s, 4s, 8s, then capped at 10s
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{10, 10 * time.Second},
	}
	for _, tc := range cases {
		if d := b.PreJitterDelay(p, tc.attempt, 0); d != tc.want {
			t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.want, d)
		}
	}
}

func TestPreJitterDelay_Monotonic(t *testing.T) {
	b := NewBackoff()
	p := testPolicy()

	prev := time.Duration(0)
	for attempt := 1; attempt <= 20; attempt++ {
		d := b.PreJitterDelay(p, attempt, 0)
		if d < prev {
			t.Fatalf("delay decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		if d > p.MaxDelay {
			t.Fatalf("delay %v exceeds max %v at attempt %d", d, p.MaxDelay, attempt)
		}
		prev = d
	}
}

func TestPreJitterDelay_SuggestedDelayReplacesBase(t *testing.T) {
	b := NewBackoff()
	p := testPolicy()

	// A Retry-After style suggestion replaces the policy base.
	if d := b.PreJitterDelay(p, 1, 3*time.Second); d != 3*time.Second {
		t.Errorf("expected 3s, got %v", d)
	}
	// The multiplier still applies on later attempts.
	if d := b.PreJitterDelay(p, 2, 3*time.Second); d != 6*time.Second {
		t.Errorf("expected 6s, got %v", d)
	}
	// And the cap still wins.
	if d := b.PreJitterDelay(p, 3, 3*time.Second); d != 10*time.Second {
		t.Errorf("expected 10s cap, got %v", d)
	}
}

func TestNextDelay_JitterBounds(t *testing.T) {
	p := testPolicy()

	// uniform=0 pulls the delay down by jitter/2, uniform→1 pushes it up.
	low := &Backoff{uniform: func() float64 { return 0 }}
	if d := low.NextDelay(p, 1, 0); d != 950*time.Millisecond {
		t.Errorf("expected 950ms at uniform=0, got %v", d)
	}

	high := &Backoff{uniform: func() float64 { return 0.9999 }}
	d := high.NextDelay(p, 1, 0)
	if d < 1*time.Second || d > 1050*time.Millisecond {
		t.Errorf("expected ~1.05s at uniform≈1, got %v", d)
	}

	// Centered draw: the midpoint leaves the delay unchanged.
	mid := &Backoff{uniform: func() float64 { return 0.5 }}
	if d := mid.NextDelay(p, 1, 0); d != 1*time.Second {
		t.Errorf("expected unchanged 1s at uniform=0.5, got %v", d)
	}
}

func TestNextDelay_Floor(t *testing.T) {
	b := NewBackoff()
	p := domain.RetryPolicy{
		MaxAttempts:    1,
		BaseDelay:      0,
		MaxDelay:       0,
		Multiplier:     1.0,
		JitterFraction: 1.0,
	}

	for attempt := 1; attempt <= 3; attempt++ {
		if d := b.NextDelay(p, attempt, 0); d < minDelay {
			t.Errorf("attempt %d: delay %v below floor %v", attempt, d, minDelay)
		}
	}
}
