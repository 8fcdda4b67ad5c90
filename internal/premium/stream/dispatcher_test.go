package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"premiumflow/internal/premium/memorystore"
	"premiumflow/pkg/storage"

	"go.uber.org/zap"
)

type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (f *failingSink) SaveTrade(context.Context, memorystore.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("sink down")
}

// go test -v --run TestDispatcherDeliversToEverySink
func TestDispatcherDeliversToEverySink(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 64)
	a, b := storage.NewMemoryStore(), storage.NewMemoryStore()
	bad := &failingSink{}
	d.AddSink("a", a)
	d.AddSink("b", b)
	d.AddSink("bad", bad)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	for i := 0; i < 20; i++ {
		if !d.Enqueue(memorystore.Trade{ID: fmt.Sprintf("t%d", i)}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	cancel()
	<-done

	for name, s := range map[string]*storage.MemoryStore{"a": a, "b": b} {
		got := s.GetTrades()
		if len(got) != 20 {
			t.Fatalf("sink %s got %d trades, want 20", name, len(got))
		}
		seen := make(map[string]bool)
		for _, tr := range got {
			if seen[tr.ID] {
				t.Errorf("sink %s got %s twice", name, tr.ID)
			}
			seen[tr.ID] = true
		}
	}
	if bad.calls != 20 || d.Failed() != 20 {
		t.Errorf("failing sink calls = %d, failed = %d", bad.calls, d.Failed())
	}
}

// go test -v --run TestDispatcherDropsWhenFull
func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 2)
	d.AddSink("mem", storage.NewMemoryStore())

	// Run is not started, so the queue fills up
	d.Enqueue(memorystore.Trade{ID: "1"})
	d.Enqueue(memorystore.Trade{ID: "2"})
	if d.Enqueue(memorystore.Trade{ID: "3"}) {
		t.Error("enqueue into a full queue should fail")
	}
	if d.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", d.Dropped())
	}
}

// go test -v --run TestDispatcherWithoutSinks
func TestDispatcherWithoutSinks(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 1)
	for i := 0; i < 5; i++ {
		if !d.Enqueue(memorystore.Trade{}) {
			t.Fatal("enqueue without sinks should be a no-op success")
		}
	}
	if d.Sinks() != 0 || d.Dropped() != 0 {
		t.Errorf("sinks = %d, dropped = %d", d.Sinks(), d.Dropped())
	}
}
