package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
	"github.com/minhvu-dev/provisioner/internal/provisioning/idempotency"
	"github.com/minhvu-dev/provisioner/internal/provisioning/metrics"
)

// Input is the caller-supplied payload for a setup operation.
type Input map[string]any

// RunContext carries the idempotency key and attempt metadata into each
// operation invocation.
type RunContext struct {
	IdempotencyKey string
	RunID          string
	Attempt        int // 1-based
	MaxAttempts    int
}

// Operation is a side-effect-producing setup step. Failures must be tagged
// domain errors (*domain.SetupError) for the retry loop to reason about
// them; anything else is treated as a programming error.
type Operation func(ctx context.Context, input Input, rc *RunContext) (*domain.Result, error)

// Classifier determines whether a failure is a known resource conflict.
type Classifier interface {
	Classify(err error) domain.ConflictDescriptor
}

// Resolver recovers a classified conflict by adopting the existing resource.
type Resolver interface {
	Resolve(ctx context.Context, desc domain.ConflictDescriptor, input map[string]any) *domain.Result
}

// Executor is the retry orchestrator: it checks idempotency, invokes the
// operation, classifies failures, delegates to the resolver, schedules
// backoff, and records attempt history. It is safe for concurrent use;
// parallel workflows should use distinct idempotency keys.
type Executor struct {
	store      idempotency.Store
	classifier Classifier
	resolver   Resolver
	backoff    *Backoff
	sleep      func(ctx context.Context, d time.Duration) error
	log        *slog.Logger
	recordTTL  time.Duration

	mu      sync.Mutex
	policy  domain.RetryPolicy
	history []domain.AttemptRecord
}

// NewExecutor creates a retry orchestrator. classifier and resolver may be
// nil, which disables conflict recovery.
func NewExecutor(
	store idempotency.Store,
	classifier Classifier,
	resolver Resolver,
	policy domain.RetryPolicy,
	recordTTL time.Duration,
	log *slog.Logger,
) *Executor {
	if log == nil {
		log = slog.Default()
	}
	if recordTTL <= 0 {
		recordTTL = 24 * time.Hour
	}
	return &Executor{
		store:      store,
		classifier: classifier,
		resolver:   resolver,
		backoff:    NewBackoff(),
		sleep:      sleepContext,
		log:        log,
		recordTTL:  recordTTL,
		policy:     policy.Normalize(),
	}
}

// Reconfigure replaces the retry policy. Each field is clamped to its
// minimum legal value rather than rejected.
func (e *Executor) Reconfigure(policy domain.RetryPolicy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = policy.Normalize()
}

// Policy returns the active retry policy.
func (e *Executor) Policy() domain.RetryPolicy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy
}

// Execute runs the operation under the idempotency key until it succeeds,
// resolves via conflict recovery, fails terminally, or exhausts the
// configured attempts. A stored result for the key is returned immediately
// without invoking the operation.
func (e *Executor) Execute(ctx context.Context, op Operation, key string, input Input) (*domain.Result, error) {
	if key == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}

	if cached, err := e.store.Get(ctx, key); err != nil {
		// A broken store must not block the workflow; worst case the
		// operation re-runs and the conditional put settles the race.
		e.log.Warn("idempotency lookup failed, proceeding", "key", key, "error", err)
	} else if cached != nil {
		e.log.Info("returning stored result for idempotency key", "key", key)
		return cached, nil
	}

	policy := e.Policy()
	runID := uuid.NewString()
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		res, err := op(ctx, input, &RunContext{
			IdempotencyKey: key,
			RunID:          runID,
			Attempt:        attempt,
			MaxAttempts:    policy.MaxAttempts,
		})

		if err == nil {
			e.record(key, attempt, true, nil)
			return e.commit(ctx, key, res)
		}

		e.record(key, attempt, false, err)

		var serr *domain.SetupError
		if !errors.As(err, &serr) {
			// Outside the domain-error contract: retrying undefined
			// failures risks masking bugs as transient issues.
			e.log.Error("unexpected failure, not retrying",
				"key", key, "attempt", attempt, "error", err)
			return nil, err
		}

		if !serr.Recoverable {
			e.log.Warn("non-recoverable failure",
				"key", key, "attempt", attempt, "error", err)
			return nil, err
		}

		lastErr = err
		if attempt == policy.MaxAttempts {
			break
		}

		if e.classifier != nil && e.resolver != nil {
			if desc := e.classifier.Classify(err); desc.CanAutoResolve() {
				if recovered := e.resolver.Resolve(ctx, desc, input); recovered != nil {
					return e.commit(ctx, key, recovered)
				}
			}
		}

		delay := e.backoff.NextDelay(policy, attempt, serr.RetryAfter)
		metrics.BackoffDelay.Observe(delay.Seconds())
		e.log.Debug("retrying after backoff",
			"key", key, "attempt", attempt, "delay", delay, "error", err)

		if err := e.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	metrics.ExhaustedTotal.Inc()
	return nil, &domain.ExhaustedError{Key: key, Attempts: policy.MaxAttempts, Err: lastErr}
}

// commit persists the result under the key. The store's conditional put
// settles same-key races: the loser adopts the winner's record so repeated
// callers observe one canonical result.
func (e *Executor) commit(ctx context.Context, key string, res *domain.Result) (*domain.Result, error) {
	stored, err := e.store.Set(ctx, key, res, e.recordTTL)
	if err != nil {
		e.log.Warn("failed to persist idempotency record", "key", key, "error", err)
		return res, nil
	}
	if !stored {
		if winner, gerr := e.store.Get(ctx, key); gerr == nil && winner != nil {
			e.log.Info("concurrent invocation won the idempotency race, adopting its result", "key", key)
			return winner, nil
		}
	}
	return res, nil
}

// record appends an attempt record. History never influences control flow.
func (e *Executor) record(key string, attempt int, success bool, err error) {
	rec := domain.AttemptRecord{
		IdempotencyKey: key,
		Attempt:        attempt,
		Success:        success,
		Timestamp:      time.Now(),
	}
	outcome := "success"
	if err != nil {
		rec.ErrorSummary = err.Error()
		outcome = "failure"
	}
	metrics.AttemptsTotal.WithLabelValues(outcome).Inc()

	e.mu.Lock()
	e.history = append(e.history, rec)
	e.mu.Unlock()
}

// sleepContext blocks for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
