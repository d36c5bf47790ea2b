package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/models"
	"github.com/dakarlabs/caisse-bot/pkg/database"
)

// DefaultCashBoxID identifies the single live cash box document.
const DefaultCashBoxID = "caisse"

// ErrVersionConflict is returned when a save loses the optimistic-lock
// race; Mutate retries on it.
var ErrVersionConflict = errors.New("cash box version conflict")

const mutateRetries = 5

// CashBoxRepository persists the cash box as one JSON document with a
// version column. Read-modify-write goes through Mutate, which
// serializes concurrent mutations with a compare-and-swap on the
// version so two approvals can never clobber each other's balance
// update.
type CashBoxRepository struct {
	db     *database.DB
	boxID  string
	logger *zap.Logger
}

// NewCashBoxRepository creates a cash box repository for the default
// document.
func NewCashBoxRepository(db *database.DB, logger *zap.Logger) *CashBoxRepository {
	return &CashBoxRepository{db: db, boxID: DefaultCashBoxID, logger: logger}
}

// Get loads the cash box document, or nil when none exists yet.
func (r *CashBoxRepository) Get(ctx context.Context) (*models.CashBox, error) {
	var doc string
	var version int64

	err := r.db.QueryRowContext(ctx,
		"SELECT doc, version FROM cashboxes WHERE id = ?", r.boxID,
	).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cash box: %w", err)
	}

	var box models.CashBox
	if err := json.Unmarshal([]byte(doc), &box); err != nil {
		return nil, fmt.Errorf("failed to decode cash box document: %w", err)
	}
	box.Version = version
	return &box, nil
}

// Mutate loads the document (creating an empty one when absent), runs
// fn and saves with a version check. Conflicting writers retry with a
// fresh load, so fn must be safe to re-run.
func (r *CashBoxRepository) Mutate(ctx context.Context, fn func(box *models.CashBox) error) error {
	var lastErr error
	for attempt := 0; attempt < mutateRetries; attempt++ {
		box, err := r.Get(ctx)
		if err != nil {
			return err
		}
		if box == nil {
			box = models.NewCashBox(r.boxID)
		}

		if err := fn(box); err != nil {
			return err
		}

		err = r.save(ctx, box)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		lastErr = err
		r.logger.Debug("Cash box version conflict, retrying",
			zap.Int("attempt", attempt+1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 20 * time.Millisecond):
		}
	}
	return fmt.Errorf("cash box mutation exhausted retries: %w", lastErr)
}

func (r *CashBoxRepository) save(ctx context.Context, box *models.CashBox) error {
	doc, err := json.Marshal(box)
	if err != nil {
		return fmt.Errorf("failed to encode cash box document: %w", err)
	}

	if box.Version == 0 {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO cashboxes (id, doc, version) VALUES (?, ?, 1)",
			r.boxID, string(doc))
		if err != nil {
			// A concurrent first write may have inserted the row already.
			if isUniqueViolation(err) {
				return ErrVersionConflict
			}
			return fmt.Errorf("failed to insert cash box: %w", err)
		}
		return nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE cashboxes
		 SET doc = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND version = ?`,
		string(doc), r.boxID, box.Version)
	if err != nil {
		return fmt.Errorf("failed to update cash box: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
