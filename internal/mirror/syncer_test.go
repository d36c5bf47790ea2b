package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

type flakyWriter struct {
	failures int
	calls    int
}

func (w *flakyWriter) Upsert(box *models.CashBox, requestID string) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("sheet locked")
	}
	return nil
}

func TestSyncer_SucceedsFirstAttempt(t *testing.T) {
	w := &flakyWriter{}
	s := NewSyncer(w, 3, time.Millisecond, zap.NewNop())

	err := s.Sync(context.Background(), models.NewCashBox("caisse"), "FUND/2026/09/0001")
	require.NoError(t, err)
	assert.Equal(t, 1, w.calls)
}

func TestSyncer_RetriesThenSucceeds(t *testing.T) {
	w := &flakyWriter{failures: 2}
	s := NewSyncer(w, 3, time.Millisecond, zap.NewNop())

	err := s.Sync(context.Background(), models.NewCashBox("caisse"), "FUND/2026/09/0001")
	require.NoError(t, err)
	assert.Equal(t, 3, w.calls)
}

func TestSyncer_ExhaustsAttempts(t *testing.T) {
	w := &flakyWriter{failures: 10}
	s := NewSyncer(w, 3, time.Millisecond, zap.NewNop())

	err := s.Sync(context.Background(), models.NewCashBox("caisse"), "FUND/2026/09/0001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted 3 attempts")
	assert.Equal(t, 3, w.calls)
}

func TestSyncer_StopsOnCancelledContext(t *testing.T) {
	w := &flakyWriter{failures: 10}
	s := NewSyncer(w, 3, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Sync(ctx, models.NewCashBox("caisse"), "FUND/2026/09/0001")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, w.calls, "no retry after cancellation")
}

func TestNewSyncer_Defaults(t *testing.T) {
	s := NewSyncer(&flakyWriter{}, 0, 0, zap.NewNop())
	assert.Equal(t, defaultAttempts, s.attempts)
	assert.Equal(t, defaultBackoff, s.backoff)
}
