package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
)

// minDelay is the floor applied before and after jitter.
const minDelay = time.Millisecond

// Backoff computes the delay before the next retry attempt.
type Backoff struct {
	// uniform returns a draw in [0,1); injectable for deterministic tests.
	uniform func() float64
}

// NewBackoff creates a backoff scheduler with the default random source.
func NewBackoff() *Backoff {
	return &Backoff{uniform: rand.Float64}
}

// PreJitterDelay computes BaseDelay * Multiplier^(attempt-1) capped at
// MaxDelay. When the failing error suggested a delay, it replaces the
// policy's base. attempt is 1-based.
func (b *Backoff) PreJitterDelay(p domain.RetryPolicy, attempt int, suggested time.Duration) time.Duration {
	base := p.BaseDelay
	if suggested > 0 {
		base = suggested
	}

	delay := float64(base) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	d := time.Duration(delay)
	if d < minDelay {
		d = minDelay
	}
	return d
}

// NextDelay applies centered jitter on top of the pre-jitter delay:
// delay += delay * jitter * (uniform(0,1) - 0.5). The ±0.5-centered draw
// keeps the expected delay unchanged while desynchronizing concurrent
// retriers.
func (b *Backoff) NextDelay(p domain.RetryPolicy, attempt int, suggested time.Duration) time.Duration {
	d := b.PreJitterDelay(p, attempt, suggested)

	jittered := float64(d) * (1 + p.JitterFraction*(b.uniform()-0.5))
	out := time.Duration(jittered)
	if out < minDelay {
		out = minDelay
	}
	return out
}
