package domain

import "time"

// AttemptRecord captures one retry attempt. Records are append-only and used
// for statistics, never for control flow.
type AttemptRecord struct {
	IdempotencyKey string    `json:"idempotency_key"`
	Attempt        int       `json:"attempt"` // 1-based
	Success        bool      `json:"success"`
	Timestamp      time.Time `json:"timestamp"`
	ErrorSummary   string    `json:"error_summary,omitempty"`
}

// RetryPolicy configures the retry loop and backoff schedule.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// Normalize clamps each field to its minimum legal value. Fields are clamped
// independently rather than rejected, so a partially bad reconfiguration
// still yields a usable policy.
func (p RetryPolicy) Normalize() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < time.Millisecond {
		p.BaseDelay = time.Millisecond
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 1.0
	}
	if p.JitterFraction < 0 {
		p.JitterFraction = 0
	}
	if p.JitterFraction > 1 {
		p.JitterFraction = 1
	}
	return p
}
