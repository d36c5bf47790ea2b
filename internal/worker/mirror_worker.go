package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/caisse"
	"github.com/dakarlabs/caisse-bot/internal/mirror"
)

const mirrorQueueSize = 64

// MirrorWorker replicates ledger state into the audit spreadsheet off
// the interaction path. Replication is at-least-once and best effort:
// when a sync exhausts its retries the divergence is logged and the
// requester is told to contact an administrator, the ledger itself is
// already committed.
type MirrorWorker struct {
	store    caisse.Store
	syncer   *mirror.Syncer
	notifier caisse.Notifier
	queue    chan string
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMirrorWorker creates a mirror worker.
func NewMirrorWorker(store caisse.Store, syncer *mirror.Syncer, notifier caisse.Notifier, logger *zap.Logger) *MirrorWorker {
	return &MirrorWorker{
		store:    store,
		syncer:   syncer,
		notifier: notifier,
		queue:    make(chan string, mirrorQueueSize),
		logger:   logger,
	}
}

// Name implements Worker.
func (w *MirrorWorker) Name() string { return "mirror" }

// Start implements Worker.
func (w *MirrorWorker) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop implements Worker.
func (w *MirrorWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Enqueue schedules a sync for the given request. It returns false when
// the queue is saturated; the caller logs and moves on.
func (w *MirrorWorker) Enqueue(requestID string) bool {
	select {
	case w.queue <- requestID:
		return true
	default:
		return false
	}
}

func (w *MirrorWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case requestID := <-w.queue:
			w.sync(ctx, requestID)
		}
	}
}

func (w *MirrorWorker) sync(ctx context.Context, requestID string) {
	box, err := w.store.Get(ctx)
	if err != nil {
		w.logger.Error("Mirror sync could not load cash box",
			zap.String("request_id", requestID),
			zap.Error(err))
		return
	}
	if box == nil {
		w.logger.Error("Mirror sync with no cash box", zap.String("request_id", requestID))
		return
	}

	if err := w.syncer.Sync(ctx, box, requestID); err != nil {
		w.logger.Error("Mirror sync failed, ledger and mirror diverge",
			zap.String("request_id", requestID),
			zap.Error(err))
		if req := box.FindRequest(requestID); req != nil && w.notifier != nil {
			if nerr := w.notifier.PostMessage(ctx, req.SubmittedByID,
				"La synchronisation du tableur d'audit a échoué pour la demande "+
					requestID+". Merci de contacter un administrateur."); nerr != nil {
				w.logger.Warn("Failed to notify requester of mirror failure", zap.Error(nerr))
			}
		}
	}
}
