package feed

import (
	"context"
	"sync"

	"premiumflow/internal/premium/filter"
	"premiumflow/internal/premium/memorystore"

	"go.uber.org/zap"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Status is a point-in-time view of the feed for pollers.
type Status struct {
	State     State
	Connected bool
	Threshold float64
	LastError string
}

// Manager owns the single feed worker. Start and Stop are serialized; state
// reads never wait on a connection attempt.
type Manager struct {
	lifecycle sync.Mutex

	mu      sync.RWMutex
	state   State
	lastErr error
	cancel  context.CancelFunc
	done    chan struct{}

	newSource SourceFactory
	handle    func([]byte)
	store     *memorystore.TradeStore
	threshold *filter.Threshold
	logger    *zap.Logger
}

func NewManager(logger *zap.Logger, store *memorystore.TradeStore, threshold *filter.Threshold,
	newSource SourceFactory, handle func([]byte)) *Manager {
	return &Manager{
		state:     StateDisconnected,
		newSource: newSource,
		handle:    handle,
		store:     store,
		threshold: threshold,
		logger:    logger,
	}
}

// Start (re)connects the feed at the given threshold. Any running worker is
// stopped first and the buffer is emptied. It returns the threshold in effect.
func (m *Manager) Start(threshold float64) (float64, error) {
	applied, err := m.threshold.Normalize(threshold)
	if err != nil {
		return m.threshold.Get(), err
	}

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.stopWorker()
	m.store.Reset()
	if _, err := m.threshold.Set(applied); err != nil {
		return m.threshold.Get(), err
	}

	src, err := m.newSource()
	if err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.lastErr = err
		m.mu.Unlock()
		m.logger.Error("failed to create feed source", zap.Error(err))
		return applied, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.state = StateConnecting
	m.lastErr = nil
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.logger.Info("starting premium feed", zap.Float64("threshold", applied))
	go m.run(ctx, src, done)
	return applied, nil
}

func (m *Manager) run(ctx context.Context, src Source, done chan struct{}) {
	defer close(done)

	err := src.Run(ctx, m.handle, func() {
		m.mu.Lock()
		if ctx.Err() == nil {
			m.state = StateConnected
		}
		m.mu.Unlock()
		m.logger.Info("premium feed connected")
	})

	m.mu.Lock()
	m.state = StateDisconnected
	if err != nil && ctx.Err() == nil {
		m.lastErr = err
	}
	m.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		m.logger.Error("premium feed stopped with error", zap.Error(err))
	} else {
		m.logger.Info("premium feed stopped")
	}
}

// Stop cancels the worker and waits for it to exit. It is safe to call when
// nothing is running.
func (m *Manager) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stopWorker()
}

// stopWorker must be called with lifecycle held.
func (m *Manager) stopWorker() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	m.mu.Lock()
	m.state = StateDisconnected
	m.mu.Unlock()
}

// SetThreshold changes the admission bar for trades that arrive from now on.
func (m *Manager) SetThreshold(v float64) (float64, error) {
	return m.threshold.Set(v)
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) Connected() bool {
	return m.State() == StateConnected
}

// LastError is the error that ended the most recent worker, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Status{
		State:     m.state,
		Connected: m.state == StateConnected,
		Threshold: m.threshold.Get(),
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}
