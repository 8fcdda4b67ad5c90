package stream

import (
	"context"
	"sync/atomic"
	"time"

	"premiumflow/internal/premium/memorystore"

	"go.uber.org/zap"
)

// Sink receives admitted trades for persistence or fan-out.
type Sink interface {
	SaveTrade(ctx context.Context, t memorystore.Trade) error
}

type namedSink struct {
	name string
	sink Sink
}

// Dispatcher delivers admitted trades to every sink from a single goroutine.
// Enqueue never blocks the feed: trades are dropped when the queue is full.
type Dispatcher struct {
	queue   chan memorystore.Trade
	sinks   []namedSink
	timeout time.Duration
	logger  *zap.Logger

	dropped atomic.Int64
	failed  atomic.Int64
}

func NewDispatcher(logger *zap.Logger, queueSize int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1024
	}
	return &Dispatcher{
		queue:   make(chan memorystore.Trade, queueSize),
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// AddSink registers a sink. It must be called before Run.
func (d *Dispatcher) AddSink(name string, s Sink) {
	d.sinks = append(d.sinks, namedSink{name: name, sink: s})
}

// Sinks returns the number of registered sinks.
func (d *Dispatcher) Sinks() int { return len(d.sinks) }

// Enqueue schedules t for delivery and reports whether it was accepted.
func (d *Dispatcher) Enqueue(t memorystore.Trade) bool {
	if len(d.sinks) == 0 {
		return true
	}
	select {
	case d.queue <- t:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("dropping trade, sink queue full", zap.String("id", t.ID), zap.String("symbol", t.Symbol))
		return false
	}
}

// Run delivers queued trades until ctx is cancelled, then drains what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("sink dispatcher started", zap.Int("sinks", len(d.sinks)))
	for {
		select {
		case t := <-d.queue:
			d.deliver(context.Background(), t)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	n := 0
	for {
		select {
		case t := <-d.queue:
			d.deliver(context.Background(), t)
			n++
		default:
			d.logger.Info("sink dispatcher stopped", zap.Int("drained", n),
				zap.Int64("dropped", d.dropped.Load()), zap.Int64("failed", d.failed.Load()))
			return
		}
	}
}

func (d *Dispatcher) deliver(base context.Context, t memorystore.Trade) {
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(base, d.timeout)
		err := s.sink.SaveTrade(ctx, t)
		cancel()
		if err != nil {
			d.failed.Add(1)
			d.logger.Warn("failed to save trade", zap.String("sink", s.name), zap.String("id", t.ID), zap.Error(err))
		}
	}
}

// Dropped is the number of trades rejected because the queue was full.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Failed is the number of sink writes that returned an error.
func (d *Dispatcher) Failed() int64 { return d.failed.Load() }
