package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/minhvu-dev/provisioner/internal/infra/storage"
)

// Pruner deletes expired idempotency records from the remote repository.
// The cache expires records on its own; this keeps the durable store from
// accumulating dead rows.
type Pruner struct {
	ttl     time.Duration
	records storage.RecordRepository
}

// NewPruner creates a new pruner worker.
func NewPruner(ttl time.Duration, records storage.RecordRepository) *Pruner {
	return &Pruner{ttl: ttl, records: records}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.records == nil || p.ttl <= 0 {
		return
	}

	// Check interval: 10% of the record TTL, bounded to [1m, 1h].
	interval := min(p.ttl/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	removed, err := p.records.DeleteExpired(ctx)
	if err != nil {
		slog.Error("failed to prune expired idempotency records", "error", err)
		return
	}
	if removed > 0 {
		slog.Debug("pruned expired idempotency records", "count", removed)
	}
}
