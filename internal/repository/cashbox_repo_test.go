package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/models"
	"github.com/dakarlabs/caisse-bot/pkg/database"
)

const testSchema = `
CREATE TABLE cashboxes (
    id TEXT PRIMARY KEY,
    doc TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE request_counters (
    year INTEGER NOT NULL,
    month INTEGER NOT NULL,
    seq INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (year, month)
);
`

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}

func TestCashBoxRepository_GetBeforeFirstSave(t *testing.T) {
	repo := NewCashBoxRepository(newTestDB(t), zap.NewNop())

	box, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, box)
}

func TestCashBoxRepository_MutateCreatesDocument(t *testing.T) {
	repo := NewCashBoxRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	err := repo.Mutate(ctx, func(box *models.CashBox) error {
		box.Credit(models.CurrencyXOF, decimal.NewFromInt(1000))
		return nil
	})
	require.NoError(t, err)

	box, err := repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, box)
	assert.Equal(t, DefaultCashBoxID, box.ID)
	assert.True(t, box.Balance(models.CurrencyXOF).Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, int64(1), box.Version)
}

func TestCashBoxRepository_MutateBumpsVersion(t *testing.T) {
	repo := NewCashBoxRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := repo.Mutate(ctx, func(box *models.CashBox) error {
			box.Credit(models.CurrencyXOF, decimal.NewFromInt(100))
			return nil
		})
		require.NoError(t, err)
	}

	box, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), box.Version)
	assert.True(t, box.Balance(models.CurrencyXOF).Equal(decimal.NewFromInt(300)))
}

func TestCashBoxRepository_FailedMutationPersistsNothing(t *testing.T) {
	repo := NewCashBoxRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	err := repo.Mutate(ctx, func(box *models.CashBox) error {
		box.Credit(models.CurrencyXOF, decimal.NewFromInt(1000))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	box, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, box)
}

func TestCashBoxRepository_ConcurrentMutations(t *testing.T) {
	repo := NewCashBoxRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	const writers = 5
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Mutate(ctx, func(box *models.CashBox) error {
				box.Credit(models.CurrencyXOF, decimal.NewFromInt(1))
				return nil
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}
	box, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, box.Balance(models.CurrencyXOF).Equal(decimal.NewFromInt(writers)),
		"every credit must survive the version race")
}

func TestCounterRepository_NextSeq(t *testing.T) {
	repo := NewCounterRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	seq, err := repo.NextSeq(ctx, 2026, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = repo.NextSeq(ctx, 2026, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	// A new month restarts at 1.
	seq, err = repo.NextSeq(ctx, 2026, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}
