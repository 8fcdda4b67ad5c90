package storage

import (
	"context"
	"time"

	"premiumflow/internal/premium/memorystore"
)

// Store persists admitted trades.
type Store interface {
	SaveTrade(ctx context.Context, t memorystore.Trade) error
}

// Archive is a Store that can also be read back.
type Archive interface {
	Store
	// RecentTrades returns up to limit trades, newest first. An empty ticker
	// matches every trade.
	RecentTrades(ctx context.Context, ticker string, limit int) ([]memorystore.Trade, error)
}

// Pruner deletes trades older than a cutoff and reports how many were removed.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// HealthChecker is implemented by stores backed by a remote service.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}
