package mirror

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

// RowWriter replicates one request's state into the tabular store.
type RowWriter interface {
	Upsert(box *models.CashBox, requestID string) error
}

const (
	defaultAttempts = 3
	defaultBackoff  = time.Second
)

// Syncer wraps a RowWriter with bounded retry. Mirror replication is
// best effort: the caller logs an exhausted Sync and moves on, the
// ledger state it reflects is never rolled back.
type Syncer struct {
	writer   RowWriter
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

// NewSyncer creates a syncer with the given retry bounds; zero values
// fall back to 3 attempts with a fixed 1-second backoff.
func NewSyncer(writer RowWriter, attempts int, backoff time.Duration, logger *zap.Logger) *Syncer {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &Syncer{writer: writer, attempts: attempts, backoff: backoff, logger: logger}
}

// Sync upserts the request row, retrying up to the attempt bound with a
// fixed backoff. It returns the last error once attempts are exhausted.
func (s *Syncer) Sync(ctx context.Context, box *models.CashBox, requestID string) error {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err := s.writer.Upsert(box, requestID)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Warn("Mirror sync attempt failed",
			zap.String("request_id", requestID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < s.attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff):
			}
		}
	}
	return fmt.Errorf("mirror sync exhausted %d attempts: %w", s.attempts, lastErr)
}
