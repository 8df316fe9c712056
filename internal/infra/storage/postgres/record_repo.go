package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
)

// RecordRepo implements storage.RecordRepository using PostgreSQL. It is the
// remote persistence fallback behind the idempotency cache, so records
// survive cache eviction and process restarts.
type RecordRepo struct {
	db *DB
}

// NewRecordRepo creates a new PostgreSQL record repository.
func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Get retrieves a live record by key. Expired records are treated as absent.
func (r *RecordRepo) Get(ctx context.Context, key string) (*domain.Result, error) {
	query := `
		SELECT result
		FROM idempotency_records
		WHERE idempotency_key = $1 AND expires_at > NOW()
	`

	var raw []byte
	err := r.db.GetContext(ctx, &raw, query, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var res domain.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("invalid record format: %w", err)
	}
	return &res, nil
}

// Put inserts a record unless the key is already held. The conditional
// insert keeps concurrent writers of the same key from both winning.
func (r *RecordRepo) Put(ctx context.Context, key string, res *domain.Result, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return false, fmt.Errorf("failed to marshal record: %w", err)
	}

	query := `
		INSERT INTO idempotency_records (idempotency_key, result, created_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (idempotency_key) DO NOTHING
	`

	out, err := r.db.ExecContext(ctx, query, key, data, time.Now().Add(ttl))
	if err != nil {
		return false, fmt.Errorf("failed to put record: %w", err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// Delete removes the record for the key.
func (r *RecordRepo) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM idempotency_records WHERE idempotency_key = $1`
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// DeleteExpired removes records past their expiry.
func (r *RecordRepo) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM idempotency_records WHERE expires_at <= NOW()`
	out, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired records: %w", err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// Count returns the number of live records.
func (r *RecordRepo) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM idempotency_records WHERE expires_at > NOW()`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}
