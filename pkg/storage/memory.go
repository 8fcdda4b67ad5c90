package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"premiumflow/internal/premium/memorystore"
)

var (
	_ Archive       = (*MemoryStore)(nil)
	_ Pruner        = (*MemoryStore)(nil)
	_ HealthChecker = (*MemoryStore)(nil)
)

// MemoryStore is an in-process archive selected by the "memory" driver. It
// grows until the retention pruner removes old trades.
type MemoryStore struct {
	mu     sync.Mutex
	trades []memorystore.Trade
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trades: make([]memorystore.Trade, 0),
	}
}

func (m *MemoryStore) SaveTrade(_ context.Context, t memorystore.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, t)
	return nil
}

// GetTrades returns every stored trade in insertion order.
func (m *MemoryStore) GetTrades() []memorystore.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy to avoid race
	copyTrades := make([]memorystore.Trade, len(m.trades))
	copy(copyTrades, m.trades)
	return copyTrades
}

func (m *MemoryStore) RecentTrades(_ context.Context, ticker string, limit int) ([]memorystore.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []memorystore.Trade
	for i := len(m.trades) - 1; i >= 0; i-- {
		if ticker != "" && m.trades[i].Ticker != ticker {
			continue
		}
		out = append(out, m.trades[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.trades[:0]
	for _, t := range m.trades {
		if !t.Timestamp.Before(before) {
			kept = append(kept, t)
		}
	}
	removed := int64(len(m.trades) - len(kept))
	m.trades = kept
	return removed, nil
}

func (m *MemoryStore) IsHealthy(context.Context) bool { return true }

func (m *MemoryStore) Close() error { return nil }
