package memory

import (
	"context"
	"sync"
	"time"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
)

type entry struct {
	result    *domain.Result
	expiresAt time.Time
}

// RecordRepo is an in-memory storage.RecordRepository. Used when no database
// is configured and in tests.
type RecordRepo struct {
	records map[string]entry
	mu      sync.RWMutex
	now     func() time.Time
}

// NewRecordRepo creates a new in-memory record repository.
func NewRecordRepo() *RecordRepo {
	return &RecordRepo{
		records: make(map[string]entry),
		now:     time.Now,
	}
}

func (r *RecordRepo) Get(ctx context.Context, key string) (*domain.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.records[key]
	if !ok || r.now().After(e.expiresAt) {
		return nil, nil
	}
	return e.result, nil
}

func (r *RecordRepo) Put(ctx context.Context, key string, res *domain.Result, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.records[key]; ok && r.now().Before(e.expiresAt) {
		return false, nil
	}
	r.records[key] = entry{result: res, expiresAt: r.now().Add(ttl)}
	return true, nil
}

func (r *RecordRepo) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
	return nil
}

func (r *RecordRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	now := r.now()
	for key, e := range r.records {
		if now.After(e.expiresAt) {
			delete(r.records, key)
			removed++
		}
	}
	return removed, nil
}

func (r *RecordRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	now := r.now()
	for _, e := range r.records {
		if now.Before(e.expiresAt) {
			count++
		}
	}
	return count, nil
}
