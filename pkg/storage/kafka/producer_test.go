package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"premiumflow/internal/premium/memorystore"

	"github.com/segmentio/kafka-go"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

// go test -v --run TestProducerWritesKeyedMessage
func TestProducerWritesKeyedMessage(t *testing.T) {
	w := &mockWriter{}
	p := NewProducer(w)
	ts := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

	if err := p.SaveTrade(context.Background(), memorystore.Trade{ID: "abc", Ticker: "NVDA", Premium: 30000, Timestamp: ts}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "NVDA" || !msg.Time.Equal(ts) {
		t.Errorf("unexpected message: key=%s time=%v", msg.Key, msg.Time)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "abc" {
		t.Errorf("unexpected headers: %+v", msg.Headers)
	}

	var got memorystore.Trade
	if err := json.Unmarshal(msg.Value, &got); err != nil || got.Premium != 30000 {
		t.Errorf("unexpected value: %+v, %v", got, err)
	}

	_ = p.Close()
	if !w.closed {
		t.Error("close was not forwarded")
	}
}

// go test -v --run TestProducerWriteError
func TestProducerWriteError(t *testing.T) {
	p := NewProducer(&mockWriter{err: errors.New("broker unavailable")})
	if err := p.SaveTrade(context.Background(), memorystore.Trade{ID: "x"}); err == nil {
		t.Fatal("expected write error")
	}
}

// go test -v --run TestNewWriter
func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, "premium_option_trades")
	if w.Topic != "premium_option_trades" || w.Addr.String() != "localhost:9092" {
		t.Errorf("unexpected writer: topic=%s addr=%s", w.Topic, w.Addr)
	}
	if _, ok := w.Balancer.(*kafka.Hash); !ok {
		t.Errorf("balancer = %T, want *kafka.Hash", w.Balancer)
	}
}
