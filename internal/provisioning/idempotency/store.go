package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
	"github.com/minhvu-dev/provisioner/internal/infra/storage"
	"github.com/minhvu-dev/provisioner/internal/provisioning/metrics"
)

// Store maps idempotency keys to the results of completed operations.
// Set is a conditional put: a false return means another invocation already
// holds the key, and the caller should adopt the stored record instead.
type Store interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*domain.Result, error)
	Set(ctx context.Context, key string, res *domain.Result, ttl time.Duration) (bool, error)
}

// RepoStore adapts a storage.RecordRepository to the Store interface. Used
// when running without a cache layer (memory mode and tests).
type RepoStore struct {
	repo storage.RecordRepository
}

// NewRepoStore wraps a record repository as a Store.
func NewRepoStore(repo storage.RecordRepository) *RepoStore {
	return &RepoStore{repo: repo}
}

func (s *RepoStore) Has(ctx context.Context, key string) (bool, error) {
	res, err := s.repo.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return res != nil, nil
}

func (s *RepoStore) Get(ctx context.Context, key string) (*domain.Result, error) {
	return s.repo.Get(ctx, key)
}

func (s *RepoStore) Set(ctx context.Context, key string, res *domain.Result, ttl time.Duration) (bool, error) {
	return s.repo.Put(ctx, key, res, ttl)
}

// LayeredStore composes a fast cache with a remote persistence fallback.
// Lookups try the cache first; a remote hit is backfilled into the cache.
// Writes go through the cache's conditional put (the atomicity authority)
// and are mirrored to the remote store best-effort.
type LayeredStore struct {
	cache  Store
	remote storage.RecordRepository
	ttl    time.Duration
	log    *slog.Logger
}

// NewLayeredStore creates a layered idempotency store. remote may be nil.
func NewLayeredStore(cache Store, remote storage.RecordRepository, ttl time.Duration, log *slog.Logger) *LayeredStore {
	if log == nil {
		log = slog.Default()
	}
	return &LayeredStore{cache: cache, remote: remote, ttl: ttl, log: log}
}

func (s *LayeredStore) Has(ctx context.Context, key string) (bool, error) {
	ok, err := s.cache.Has(ctx, key)
	if err != nil {
		return false, err
	}
	if ok || s.remote == nil {
		return ok, nil
	}
	res, err := s.remote.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return res != nil, nil
}

func (s *LayeredStore) Get(ctx context.Context, key string) (*domain.Result, error) {
	res, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("idempotency cache lookup failed", "key", key, "error", err)
	}
	if res != nil {
		metrics.IdempotencyHits.WithLabelValues("cache").Inc()
		return res, nil
	}
	if s.remote == nil {
		return nil, err
	}

	res, rerr := s.remote.Get(ctx, key)
	if rerr != nil {
		return nil, rerr
	}
	if res == nil {
		return nil, nil
	}

	metrics.IdempotencyHits.WithLabelValues("remote").Inc()
	// Backfill the cache so the next lookup stays local.
	if _, cerr := s.cache.Set(ctx, key, res, s.ttl); cerr != nil {
		s.log.Warn("failed to backfill idempotency cache", "key", key, "error", cerr)
	}
	return res, nil
}

func (s *LayeredStore) Set(ctx context.Context, key string, res *domain.Result, ttl time.Duration) (bool, error) {
	stored, err := s.cache.Set(ctx, key, res, ttl)
	if err != nil {
		metrics.IdempotencyWrites.WithLabelValues("error").Inc()
		return false, err
	}

	if stored {
		metrics.IdempotencyWrites.WithLabelValues("stored").Inc()
	} else {
		metrics.IdempotencyWrites.WithLabelValues("lost_race").Inc()
	}

	if s.remote != nil && stored {
		if _, rerr := s.remote.Put(ctx, key, res, ttl); rerr != nil {
			// Remote persistence is best-effort; the cache record is live.
			s.log.Warn("failed to persist idempotency record remotely", "key", key, "error", rerr)
		}
	}
	return stored, nil
}
