package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"premiumflow/internal/premium/memorystore"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer appends admitted trades to a Kafka topic keyed by ticker, so
// trades on one underlying stay ordered within a partition.
type Producer struct {
	writer MessageWriter
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func NewProducer(w MessageWriter) *Producer {
	return &Producer{writer: w}
}

func (p *Producer) SaveTrade(ctx context.Context, t memorystore.Trade) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(t.Ticker),
		Value: payload,
		Time:  t.Timestamp,
		Headers: []kafka.Header{
			{Key: "trade_id", Value: []byte(t.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("write trade %s: %w", t.ID, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
