package mock

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"premiumflow/pkg/alpaca"

	"go.uber.org/zap"
)

var (
	strikes   = []float64{100, 105, 110, 115, 120, 125, 130, 140, 150, 160, 170, 180, 190, 200, 210, 220, 230, 240, 250, 300, 350, 400, 450, 500, 550, 600}
	exchanges = []string{"N", "C", "A", "P", "Q"}
	types     = []alpaca.OptionType{alpaca.OptionCall, alpaca.OptionPut}
)

const expirationMonths = 6

type Options struct {
	Tickers     []string
	MinInterval time.Duration
	MaxInterval time.Duration
	// Threshold reports the live admission bar so generated trades clear it.
	Threshold func() float64
}

// Generator produces synthetic option trades encoded as stream frames. It
// feeds the same decode and admission path as the live stream.
type Generator struct {
	opts   Options
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewGenerator(opts Options, logger *zap.Logger) (*Generator, error) {
	if len(opts.Tickers) == 0 {
		return nil, fmt.Errorf("mock generator needs at least one ticker")
	}
	if opts.MinInterval <= 0 || opts.MaxInterval < opts.MinInterval {
		return nil, fmt.Errorf("invalid mock interval range [%s, %s]", opts.MinInterval, opts.MaxInterval)
	}
	if opts.Threshold == nil {
		return nil, fmt.Errorf("mock generator needs a threshold func")
	}

	seed := uint64(time.Now().UnixNano())
	return &Generator{
		opts:   opts,
		logger: logger,
		rng:    rand.New(rand.NewPCG(seed, seed>>1)),
		now:    time.Now,
	}, nil
}

// Run emits a frame every [MinInterval, MaxInterval] until ctx is done. The
// generator has no handshake, so ready is called straight away.
func (g *Generator) Run(ctx context.Context, handle func([]byte), ready func()) error {
	g.logger.Info("mock generator started", zap.Strings("tickers", g.opts.Tickers),
		zap.Duration("min_interval", g.opts.MinInterval), zap.Duration("max_interval", g.opts.MaxInterval))
	ready()

	timer := time.NewTimer(g.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("mock generator stopped")
			return nil
		case <-timer.C:
			frame, err := g.NextFrame()
			if err != nil {
				return err
			}
			handle(frame)
			timer.Reset(g.interval())
		}
	}
}

// NextFrame encodes between one and three trades as a single frame.
func (g *Generator) NextFrame() ([]byte, error) {
	g.mu.Lock()
	n := 1 + g.rng.IntN(3)
	msgs := make([]alpaca.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, g.trade())
	}
	g.mu.Unlock()

	frame, err := alpaca.EncodeFrame(msgs...)
	if err != nil {
		return nil, fmt.Errorf("encode mock frame: %w", err)
	}
	return frame, nil
}

// trade must be called with g.mu held.
func (g *Generator) trade() alpaca.Message {
	now := g.now()
	expirations := ThirdFridays(now, expirationMonths)

	ticker := g.opts.Tickers[g.rng.IntN(len(g.opts.Tickers))]
	strike := strikes[g.rng.IntN(len(strikes))]
	typ := types[g.rng.IntN(len(types))]
	expiry := expirations[g.rng.IntN(len(expirations))]

	price := math.Round((2+g.rng.Float64()*48)*100) / 100
	minSize := SizeFloor(g.opts.Threshold(), price)
	size := minSize + g.rng.IntN(min(4*minSize, MaxContracts)+1)

	return alpaca.Message{
		Type:      alpaca.TypeTrade,
		Symbol:    alpaca.FormatOptionSymbol(ticker, expiry, typ, strike),
		Price:     price,
		Size:      size,
		Timestamp: alpaca.Timestamp{Time: now.UTC()},
		Exchange:  exchanges[g.rng.IntN(len(exchanges))],
		Condition: alpaca.Conditions{"I"},
	}
}

func (g *Generator) interval() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	span := int64(g.opts.MaxInterval - g.opts.MinInterval)
	if span <= 0 {
		return g.opts.MinInterval
	}
	return g.opts.MinInterval + time.Duration(g.rng.Int64N(span+1))
}

// MaxContracts caps a single mock trade. Thresholds beyond what it can clear
// produce trades the filter rejects.
const MaxContracts = 1_000_000

// SizeFloor is the smallest contract count whose premium at price strictly
// exceeds threshold, capped at MaxContracts.
func SizeFloor(threshold, price float64) int {
	contracts := math.Floor(threshold/(price*alpaca.ContractMultiplier)) + 1
	if !(contracts < MaxContracts) {
		return MaxContracts
	}
	return max(int(contracts), 1)
}

// ThirdFridays returns the third Friday of each of the n months following now.
func ThirdFridays(now time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		month := first.AddDate(0, i, 0)
		offset := (int(time.Friday) - int(month.Weekday()) + 7) % 7
		out = append(out, month.AddDate(0, 0, offset+14))
	}
	return out
}
