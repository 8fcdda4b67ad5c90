package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"premiumflow/internal/premium/memorystore"

	"github.com/redis/go-redis/v9"
)

// Publisher fans admitted trades out on a pub/sub channel and keeps a capped
// list of the most recent ones.
type Publisher struct {
	client    *redis.Client
	channel   string
	recentKey string
	limit     int64
}

func NewPublisher(client *redis.Client, channel, recentKey string, limit int) *Publisher {
	if limit <= 0 {
		limit = 1000
	}
	return &Publisher{
		client:    client,
		channel:   channel,
		recentKey: recentKey,
		limit:     int64(limit),
	}
}

// SaveTrade publishes t and pushes it onto the recent list in one round trip.
func (p *Publisher) SaveTrade(ctx context.Context, t memorystore.Trade) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}

	_, err = p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, payload)
		pipe.LPush(ctx, p.recentKey, payload)
		pipe.LTrim(ctx, p.recentKey, 0, p.limit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish trade %s: %w", t.ID, err)
	}
	return nil
}

// RecentTrades reads the capped list, newest first.
func (p *Publisher) RecentTrades(ctx context.Context, ticker string, limit int) ([]memorystore.Trade, error) {
	raw, err := p.client.LRange(ctx, p.recentKey, 0, p.limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent trades: %w", err)
	}

	out := make([]memorystore.Trade, 0, len(raw))
	for _, r := range raw {
		var t memorystore.Trade
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			continue
		}
		if ticker != "" && t.Ticker != ticker {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (p *Publisher) IsHealthy(ctx context.Context) bool {
	return p.client.Ping(ctx).Err() == nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
