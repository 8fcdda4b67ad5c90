package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"premiumflow/internal/premium/memorystore"
	"premiumflow/pkg/storage"

	"go.uber.org/zap"
)

type brokenPruner struct{}

func (brokenPruner) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

// go test -v --run TestUntilNextMidnight
func TestUntilNextMidnight(t *testing.T) {
	now := time.Date(2024, 6, 3, 22, 30, 0, 0, time.UTC)
	if got := UntilNextMidnight(now); got != 90*time.Minute {
		t.Errorf("wait = %s, want 1h30m", got)
	}

	ny := time.FixedZone("EDT", -4*3600)
	local := time.Date(2024, 6, 3, 19, 0, 0, 0, ny) // 23:00 UTC
	if got := UntilNextMidnight(local); got != time.Hour {
		t.Errorf("wait = %s, want 1h", got)
	}
}

// go test -v --run TestRunOncePrunes
func TestRunOncePrunes(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	_ = store.SaveTrade(ctx, memorystore.Trade{ID: "old", Timestamp: now.AddDate(0, 0, -31)})
	_ = store.SaveTrade(ctx, memorystore.Trade{ID: "recent", Timestamp: now.AddDate(0, 0, -1)})

	p := NewMidnightPruner(store, 30*24*time.Hour, zap.NewNop())
	p.now = func() time.Time { return now }

	if n := p.RunOnce(ctx); n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if got := store.GetTrades(); len(got) != 1 || got[0].ID != "recent" {
		t.Errorf("unexpected remaining trades: %+v", got)
	}

	bad := NewMidnightPruner(brokenPruner{}, time.Hour, zap.NewNop())
	if n := bad.RunOnce(ctx); n != 0 {
		t.Errorf("failed prune should report 0, got %d", n)
	}
}

// go test -v --run TestStartStopsOnCancel
func TestStartStopsOnCancel(t *testing.T) {
	store := storage.NewMemoryStore()
	p := NewMidnightPruner(store, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pruner did not stop after cancel")
	}
}
