package caisse

import (
	"context"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

// Store persists the cash box document. Mutate must load the current
// document (creating an empty one when none exists), apply fn and save
// atomically; implementations serialize concurrent mutations per cash
// box, e.g. with a version compare-and-swap. When fn returns an error
// nothing is persisted.
type Store interface {
	Get(ctx context.Context) (*models.CashBox, error)
	Mutate(ctx context.Context, fn func(box *models.CashBox) error) error
}

// Sequencer allocates request sequence numbers atomically per
// (year, month) so concurrent submissions never share an ID.
type Sequencer interface {
	NextSeq(ctx context.Context, year int, month int) (int64, error)
}

// Notifier delivers follow-up messages through the chat gateway. A
// delivery failure is a soft failure: callers log it and move on, the
// ledger is never rolled back.
type Notifier interface {
	PostMessage(ctx context.Context, target, text string) error
}
