package alpaca

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// fakeStream mimics the Alpaca options stream handshake.
type fakeStream struct {
	acceptKey string
	trades    [][]byte
	hold      chan struct{} // closed to let the handler return
}

func (f *fakeStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`[{"T":"success","msg":"connected"}]`))

	var auth authRequest
	if err := conn.ReadJSON(&auth); err != nil {
		return
	}
	if auth.Key != f.acceptKey {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`[{"T":"error","code":402,"msg":"auth failed"}]`))
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`[{"T":"success","msg":"authenticated"}]`))

	var sub subscribeRequest
	if err := conn.ReadJSON(&sub); err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`[{"T":"subscription","trades":["*"]}]`))

	for _, frame := range f.trades {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}

	if f.hold != nil {
		<-f.hold
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// go test -v --run TestWSClientReceivesTrades
func TestWSClientReceivesTrades(t *testing.T) {
	stream := &fakeStream{
		acceptKey: "good",
		trades: [][]byte{
			[]byte(`[{"T":"t","S":"AAPL240621C00220000","p":5.5,"s":30,"t":"2024-03-11T13:35:35.13312256Z","x":"C","c":"I"}]`),
		},
		hold: make(chan struct{}),
	}
	srv := httptest.NewServer(stream)
	defer srv.Close()
	defer close(stream.hold)

	client := NewWSClient(wsURL(srv), "good", "secret", 2*time.Second, zap.NewNop())
	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if err := client.Subscribe([]string{"*"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var trades []Message
	for len(trades) == 0 {
		frame, err := client.Next(ctx, 2*time.Second)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		msgs, err := DecodeFrame(frame)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		for _, m := range msgs {
			if m.IsTrade() {
				trades = append(trades, m)
			}
		}
	}

	got := trades[0]
	if got.Symbol != "AAPL240621C00220000" || got.Price != 5.5 || got.Size != 30 {
		t.Errorf("unexpected trade: %+v", got)
	}
	if got.Condition.String() != "I" || got.Exchange != "C" {
		t.Errorf("unexpected exchange/condition: %q/%q", got.Exchange, got.Condition)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not decoded")
	}
}

// go test -v --run TestWSClientAuthRejected
func TestWSClientAuthRejected(t *testing.T) {
	srv := httptest.NewServer(&fakeStream{acceptKey: "good"})
	defer srv.Close()

	client := NewWSClient(wsURL(srv), "bad", "secret", 2*time.Second, zap.NewNop())
	err := client.Connect(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}

// go test -v --run TestWSClientReadTimeout
func TestWSClientReadTimeout(t *testing.T) {
	stream := &fakeStream{acceptKey: "good", hold: make(chan struct{})}
	srv := httptest.NewServer(stream)
	defer srv.Close()
	defer close(stream.hold)

	client := NewWSClient(wsURL(srv), "good", "secret", 2*time.Second, zap.NewNop())
	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	if err := client.Subscribe([]string{"*"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// subscription ack, then silence
	if _, err := client.Next(ctx, 2*time.Second); err != nil {
		t.Fatalf("expected subscription ack, got %v", err)
	}
	if _, err := client.Next(ctx, 50*time.Millisecond); !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("err = %v, want ErrReadTimeout", err)
	}

	// the socket survives the timeout and honours cancellation
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := client.Next(cctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// go test -v --run TestWSClientServerDrop
func TestWSClientServerDrop(t *testing.T) {
	srv := httptest.NewServer(&fakeStream{acceptKey: "good"})
	defer srv.Close()

	client := NewWSClient(wsURL(srv), "good", "secret", 2*time.Second, zap.NewNop())
	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	if err := client.Subscribe([]string{"*"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// handler returns after the ack, which closes the socket
	for {
		_, err := client.Next(ctx, 2*time.Second)
		if err == nil {
			continue
		}
		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			t.Fatalf("err = %v, want *ConnectionError", err)
		}
		return
	}
}

// go test -v --run TestWSClientDialFailure
func TestWSClientDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	client := NewWSClient(url, "k", "s", time.Second, zap.NewNop())
	err := client.Connect(context.Background())

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want *ConnectionError", err)
	}
}

// go test -v --run TestWSClientNotConnected
func TestWSClientNotConnected(t *testing.T) {
	client := NewWSClient("ws://unused", "k", "s", time.Second, zap.NewNop())
	if err := client.Subscribe([]string{"*"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("subscribe err = %v, want ErrNotConnected", err)
	}
	if _, err := client.Next(context.Background(), time.Millisecond); !errors.Is(err, ErrNotConnected) {
		t.Errorf("next err = %v, want ErrNotConnected", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("close on idle client: %v", err)
	}
}

// go test -v --run TestDecodeFrame
func TestDecodeFrame(t *testing.T) {
	msgs, err := DecodeFrame([]byte(`{"T":"t","S":"SPY251219P00592500","p":1.25,"s":100,"t":1718900000000,"c":["I","X"]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 1 || !msgs[0].IsTrade() {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if msgs[0].Condition.String() != "I,X" {
		t.Errorf("condition = %q, want I,X", msgs[0].Condition.String())
	}
	if msgs[0].Timestamp.UnixMilli() != 1718900000000 {
		t.Errorf("timestamp = %v", msgs[0].Timestamp)
	}

	if _, err := DecodeFrame([]byte(`[{"T":`)); err == nil {
		t.Error("expected error for truncated frame")
	}
	if msgs, err := DecodeFrame([]byte("  ")); err != nil || msgs != nil {
		t.Errorf("blank frame: msgs=%v err=%v", msgs, err)
	}
}

// go test -v --run TestWSClientConnectCancelledDuringAuth
func TestWSClientConnectCancelledDuringAuth(t *testing.T) {
	hold := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// never answers the auth request
		<-hold
	}))
	defer srv.Close()
	defer close(hold)

	client := NewWSClient(wsURL(srv), "good", "secret", 30*time.Second, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- client.Connect(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("connect returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("connect did not return after cancel")
	}
}
