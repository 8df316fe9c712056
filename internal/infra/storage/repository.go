package storage

import (
	"context"
	"time"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
)

// RecordRepository persists idempotency records. It backs the remote
// persistence fallback of the idempotency store and the admin tooling.
type RecordRepository interface {
	// Get retrieves the result stored under the key. Returns nil when no
	// live record exists; expired records are treated as absent.
	Get(ctx context.Context, key string) (*domain.Result, error)

	// Put stores the result under the key unless a live record already
	// exists. Returns false when the key was already held.
	Put(ctx context.Context, key string, res *domain.Result, ttl time.Duration) (bool, error)

	// Delete removes the record for the key.
	Delete(ctx context.Context, key string) error

	// DeleteExpired removes records past their expiry, returning the count.
	DeleteExpired(ctx context.Context) (int64, error)

	// Count returns the number of live records.
	Count(ctx context.Context) (int, error)
}
