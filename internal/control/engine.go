package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pressly/goose/v3"

	"github.com/minhvu-dev/provisioner/internal/core/config"
	"github.com/minhvu-dev/provisioner/internal/core/worker"
	platformclient "github.com/minhvu-dev/provisioner/internal/infra/platform"
	redisclient "github.com/minhvu-dev/provisioner/internal/infra/redis"
	"github.com/minhvu-dev/provisioner/internal/infra/storage"
	"github.com/minhvu-dev/provisioner/internal/infra/storage/memory"
	"github.com/minhvu-dev/provisioner/internal/infra/storage/postgres"
	"github.com/minhvu-dev/provisioner/internal/provisioning/conflict"
	"github.com/minhvu-dev/provisioner/internal/provisioning/health"
	"github.com/minhvu-dev/provisioner/internal/provisioning/idempotency"
	"github.com/minhvu-dev/provisioner/internal/provisioning/retry"
	"github.com/minhvu-dev/provisioner/internal/provisioning/workflow"
)

// Engine wires the provisioning stack: idempotency store, conflict
// classifier/resolver, retry executor, workflows, health server, and the
// record pruner. It owns the lifecycle of all of them.
type Engine struct {
	cfg          Config
	executor     *retry.Executor
	signup       *workflow.Signup
	store        idempotency.Store
	records      storage.RecordRepository
	db           *postgres.DB
	cache        *redisclient.Cache
	pruner       *worker.Pruner
	healthServer *health.Server
	log          *slog.Logger
}

// Config holds the engine configuration.
type Config struct {
	Port     int
	Retry    config.RetryConfig
	Redis    redisclient.Config
	Database postgres.Config
	Platform platformclient.Config
}

// NewEngine creates an Engine with all dependencies initialized.
func NewEngine(cfg Config) (*Engine, error) {
	log := slog.Default()

	// 1. Remote persistence (optional)
	var db *postgres.DB
	var records storage.RecordRepository
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		records = postgres.NewRecordRepo(db)
		log.Info("Using PostgreSQL record persistence")
	}

	// 2. Idempotency cache
	var cacheStore idempotency.Store
	var cache *redisclient.Cache
	checks := make(map[string]health.CheckFunc)
	if cfg.Redis.URL != "" {
		var err error
		cache, err = redisclient.NewCache(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		cacheStore = cache
		checks["redis"] = cache.Ping
		log.Info("Using Redis idempotency cache")
	} else {
		cacheStore = idempotency.NewRepoStore(memory.NewRecordRepo())
		log.Info("Using in-memory idempotency cache")
	}
	if db != nil {
		checks["database"] = db.PingContext
	}

	store := idempotency.NewLayeredStore(cacheStore, records, cfg.Retry.RecordTTL, log)

	// 3. Conflict recovery + executor
	api := platformclient.NewClient(cfg.Platform)
	classifier := conflict.NewClassifier()
	resolver := conflict.NewResolver(api, log)
	executor := retry.NewExecutor(store, classifier, resolver, cfg.Retry.Policy, cfg.Retry.RecordTTL, log)

	// 4. Observability + retention
	monitor := health.NewMonitor(checks, records)
	healthServer := health.NewServer(monitor, executor, cfg.Port)
	pruner := worker.NewPruner(cfg.Retry.RecordTTL, records)

	return &Engine{
		cfg:          cfg,
		executor:     executor,
		signup:       workflow.NewSignup(executor, api, log),
		store:        store,
		records:      records,
		db:           db,
		cache:        cache,
		pruner:       pruner,
		healthServer: healthServer,
		log:          log,
	}, nil
}

// Start launches the health server and the record pruner.
func (e *Engine) Start(ctx context.Context) error {
	go func() {
		if err := e.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("health server failed", "error", err)
		}
	}()
	go e.pruner.Start(ctx)

	e.log.Info("engine started", "port", e.cfg.Port)
	return nil
}

// Stop shuts everything down gracefully.
func (e *Engine) Stop(ctx context.Context) error {
	if err := e.healthServer.Stop(ctx); err != nil {
		e.log.Warn("health server shutdown failed", "error", err)
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.log.Warn("redis close failed", "error", err)
		}
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.log.Warn("database close failed", "error", err)
		}
	}
	return nil
}

// Executor returns the retry orchestrator for direct use by SDK callers.
func (e *Engine) Executor() *retry.Executor {
	return e.executor
}

// Signup returns the signup provisioning workflow.
func (e *Engine) Signup() *workflow.Signup {
	return e.signup
}
