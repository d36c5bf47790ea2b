package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Worker is the common contract for background workers.
type Worker interface {
	Start(ctx context.Context) error
	Stop()
	Name() string
}

// Manager owns the lifecycle of all background workers.
type Manager struct {
	mu      sync.RWMutex
	workers []Worker
	logger  *zap.Logger
}

// NewManager creates a worker manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds a worker to be managed.
func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, w)
}

// StartAll starts every registered worker, failing fast on the first
// error.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, w := range m.workers {
		if err := w.Start(ctx); err != nil {
			m.logger.Error("Failed to start worker",
				zap.String("name", w.Name()),
				zap.Error(err))
			return err
		}
		m.logger.Info("Worker started", zap.String("name", w.Name()))
	}
	return nil
}

// StopAll stops workers in reverse registration order.
func (m *Manager) StopAll() {
	m.mu.RLock()
	workers := append([]Worker(nil), m.workers...)
	m.mu.RUnlock()

	for i := len(workers) - 1; i >= 0; i-- {
		workers[i].Stop()
		m.logger.Info("Worker stopped", zap.String("name", workers[i].Name()))
	}
}
