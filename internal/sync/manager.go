package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Syncer runs one full replication pass.
type Syncer interface {
	SyncAll(ctx context.Context, since *time.Time) (*Report, error)
}

// Hook runs after every sync that produced a report, in registration order.
type Hook func(ctx context.Context, report *Report)

// Manager guarantees at most one sync in flight and keeps the last outcome.
type Manager struct {
	engine  Syncer
	timeout time.Duration
	log     *zap.Logger

	run sync.Mutex // held for the whole SyncAll

	mu      sync.Mutex
	status  string
	last    *Report
	lastErr error
	hooks   []Hook
}

func NewManager(engine Syncer, timeout time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		engine:  engine,
		timeout: timeout,
		log:     log,
		status:  StatusIdle,
	}
}

func (m *Manager) AddHook(h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, h)
}

// Run performs a sync in the caller's goroutine. It returns ErrSyncInProgress
// without waiting when another sync holds the lock.
func (m *Manager) Run(ctx context.Context, since *time.Time) (*Report, error) {
	if !m.run.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer m.run.Unlock()
	return m.runLocked(ctx, since)
}

// Trigger starts a sync in the background and returns immediately.
func (m *Manager) Trigger(since *time.Time) error {
	if !m.run.TryLock() {
		return ErrSyncInProgress
	}
	m.setStatus(StatusRunning)

	go func() {
		defer m.run.Unlock()

		ctx := context.Background()
		if m.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}
		if _, err := m.runLocked(ctx, since); err != nil {
			m.log.Error("Background sync failed", zap.Error(err))
		}
	}()
	return nil
}

func (m *Manager) runLocked(ctx context.Context, since *time.Time) (*Report, error) {
	m.setStatus(StatusRunning)
	defer m.setStatus(StatusIdle)

	report, err := m.engine.SyncAll(ctx, since)

	m.mu.Lock()
	m.last = report
	m.lastErr = err
	hooks := append([]Hook(nil), m.hooks...)
	m.mu.Unlock()

	if report != nil {
		for _, h := range hooks {
			h(ctx, report)
		}
	}
	return report, err
}

func (m *Manager) setStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

func (m *Manager) GetStatus() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastRun returns the report and error of the most recent sync, if any.
func (m *Manager) LastRun() (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.lastErr
}
