package retention

import (
	"context"
	"time"

	"premiumflow/pkg/storage"

	"go.uber.org/zap"
)

// MidnightPruner deletes archived trades older than MaxAge once at startup
// and then at every UTC midnight.
type MidnightPruner struct {
	Pruner storage.Pruner
	MaxAge time.Duration
	Logger *zap.Logger

	now func() time.Time
}

func NewMidnightPruner(p storage.Pruner, maxAge time.Duration, logger *zap.Logger) *MidnightPruner {
	return &MidnightPruner{Pruner: p, MaxAge: maxAge, Logger: logger, now: time.Now}
}

// Start blocks until ctx is cancelled.
func (m *MidnightPruner) Start(ctx context.Context) {
	// Run immediately once at startup
	m.RunOnce(ctx)

	for {
		timer := time.NewTimer(UntilNextMidnight(m.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce prunes a single time and returns the number of deleted trades.
func (m *MidnightPruner) RunOnce(ctx context.Context) int64 {
	cutoff := m.now().Add(-m.MaxAge)

	pruneCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := m.Pruner.DeleteOlderThan(pruneCtx, cutoff)
	if err != nil {
		m.Logger.Warn("failed to prune archived trades", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0
	}
	m.Logger.Info("pruned archived trades", zap.Time("cutoff", cutoff), zap.Int64("deleted", n))
	return n
}

// UntilNextMidnight returns the wait from now to the next UTC midnight.
func UntilNextMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	return next.Sub(now)
}
