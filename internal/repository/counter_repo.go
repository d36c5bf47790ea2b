package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/pkg/database"
)

// CounterRepository allocates request sequence numbers from a dedicated
// counter row per (year, month). The increment is a single statement,
// so concurrent submissions can never observe the same sequence.
type CounterRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewCounterRepository creates a counter repository.
func NewCounterRepository(db *database.DB, logger *zap.Logger) *CounterRepository {
	return &CounterRepository{db: db, logger: logger}
}

// NextSeq atomically increments and returns the sequence for the given
// year and month. The sequence starts at 1 each calendar month.
func (r *CounterRepository) NextSeq(ctx context.Context, year int, month int) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO request_counters (year, month, seq) VALUES (?, ?, 1)
		ON CONFLICT(year, month) DO UPDATE SET seq = seq + 1
		RETURNING seq
	`, year, month).Scan(&seq)
	if err != nil {
		r.logger.Error("Failed to allocate request sequence",
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err))
		return 0, fmt.Errorf("failed to allocate request sequence: %w", err)
	}
	return seq, nil
}
