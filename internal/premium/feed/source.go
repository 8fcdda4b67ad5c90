package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"premiumflow/pkg/alpaca"

	"go.uber.org/zap"
)

// Source produces raw stream frames until ctx is cancelled or the upstream
// fails. ready is called once the source is delivering data.
type Source interface {
	Run(ctx context.Context, handle func(frame []byte), ready func()) error
}

// SourceFactory builds a fresh Source for every connection attempt.
type SourceFactory func() (Source, error)

type LiveOptions struct {
	URL              string
	APIKey           string
	APISecret        string
	HandshakeTimeout time.Duration
	ReadWait         time.Duration
	Subscriptions    []string
}

// LiveSource reads option trades from the Alpaca websocket stream.
type LiveSource struct {
	opts   LiveOptions
	logger *zap.Logger
}

func NewLiveSource(opts LiveOptions, logger *zap.Logger) *LiveSource {
	if opts.ReadWait <= 0 {
		opts.ReadWait = time.Second
	}
	if len(opts.Subscriptions) == 0 {
		opts.Subscriptions = []string{"*"}
	}
	return &LiveSource{opts: opts, logger: logger}
}

func (s *LiveSource) Run(ctx context.Context, handle func([]byte), ready func()) error {
	client := alpaca.NewWSClient(s.opts.URL, s.opts.APIKey, s.opts.APISecret, s.opts.HandshakeTimeout, s.logger)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	if err := client.Subscribe(s.opts.Subscriptions); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	ready()

	for {
		frame, err := client.Next(ctx, s.opts.ReadWait)
		switch {
		case err == nil:
			handle(frame)
		case errors.Is(err, alpaca.ErrReadTimeout):
			// idle stream, keep polling so cancellation is noticed
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
}
