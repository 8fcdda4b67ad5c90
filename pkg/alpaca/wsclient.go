package alpaca

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// ErrAuth is returned when the stream rejects the credentials.
	ErrAuth = errors.New("alpaca: authentication failed")
	// ErrReadTimeout is returned by Next when no frame arrived within the wait.
	ErrReadTimeout = errors.New("alpaca: read timeout")
	// ErrNotConnected is returned when the client is used before Connect.
	ErrNotConnected = errors.New("alpaca: not connected")
)

// ConnectionError wraps transport failures on the stream.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("alpaca: connection to %s failed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

const frameBuffer = 256

// WSClient handles the WebSocket connection to the Alpaca options stream.
// Reads are pumped by a goroutine so a bounded wait in Next never leaves the
// socket in a broken state.
type WSClient struct {
	url              string
	key              string
	secret           string
	handshakeTimeout time.Duration
	logger           *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	frames chan []byte
	dead   chan struct{}
	err    error

	closed    chan struct{}
	closeOnce sync.Once
}

// NewWSClient creates a new WebSocket client with the given URL, credentials and logger.
func NewWSClient(url, key, secret string, handshakeTimeout time.Duration, logger *zap.Logger) *WSClient {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	return &WSClient{
		url:              url,
		key:              key,
		secret:           secret,
		handshakeTimeout: handshakeTimeout,
		logger:           logger,
		closed:           make(chan struct{}),
	}
}

// Connect dials the stream and authenticates. It does not subscribe.
func (c *WSClient) Connect(ctx context.Context) error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = c.handshakeTimeout

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.logger.Error("failed to connect to websocket", zap.String("url", c.url), zap.Error(err))
		return &ConnectionError{URL: c.url, Err: err}
	}
	c.logger.Info("websocket connected", zap.String("url", c.url))

	// closing the conn unblocks the handshake when ctx ends first
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	err = c.authenticate(conn)
	if !stop() && ctx.Err() != nil {
		_ = conn.Close()
		return ctx.Err()
	}
	if err != nil {
		_ = conn.Close()
		return err
	}
	c.logger.Info("websocket authenticated")

	c.mu.Lock()
	c.conn = conn
	c.frames = make(chan []byte, frameBuffer)
	c.dead = make(chan struct{})
	frames, dead := c.frames, c.dead
	c.mu.Unlock()

	go c.pump(conn, frames, dead)
	return nil
}

func (c *WSClient) authenticate(conn *websocket.Conn) error {
	deadline := time.Now().Add(c.handshakeTimeout)

	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(authRequest{Action: ActionAuth, Key: c.key, Secret: c.secret}); err != nil {
		return &ConnectionError{URL: c.url, Err: fmt.Errorf("send auth: %w", err)}
	}

	for {
		_ = conn.SetReadDeadline(deadline)
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return &ConnectionError{URL: c.url, Err: fmt.Errorf("await auth: %w", err)}
		}

		msgs, err := DecodeFrame(frame)
		if err != nil {
			return &ConnectionError{URL: c.url, Err: err}
		}

		for _, m := range msgs {
			switch m.Type {
			case TypeSuccess:
				if m.Msg == MsgAuthenticated {
					_ = conn.SetReadDeadline(time.Time{})
					_ = conn.SetWriteDeadline(time.Time{})
					return nil
				}
			case TypeError:
				c.logger.Error("websocket auth rejected", zap.Int("code", m.Code), zap.String("msg", m.Msg))
				return fmt.Errorf("%w: %s (code %d)", ErrAuth, m.Msg, m.Code)
			}
		}
	}
}

// Subscribe requests trades for the given symbols; "*" asks for all of them.
func (c *WSClient) Subscribe(trades []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteJSON(subscribeRequest{Action: ActionSubscribe, Trades: trades}); err != nil {
		c.logger.Error("failed to send subscription", zap.Error(err))
		return &ConnectionError{URL: c.url, Err: fmt.Errorf("subscribe: %w", err)}
	}
	c.logger.Info("subscription request sent", zap.Strings("trades", trades))
	return nil
}

// Next waits up to wait for the next frame. It returns ErrReadTimeout when
// the wait elapses, ctx.Err() on cancellation and a *ConnectionError once the
// socket has failed.
func (c *WSClient) Next(ctx context.Context, wait time.Duration) ([]byte, error) {
	c.mu.Lock()
	frames, dead := c.frames, c.dead
	c.mu.Unlock()

	if frames == nil {
		return nil, ErrNotConnected
	}

	// drain buffered frames before reporting a dead socket
	select {
	case frame := <-frames:
		return frame, nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case frame := <-frames:
		return frame, nil
	case <-dead:
		return nil, &ConnectionError{URL: c.url, Err: c.readErr()}
	case <-timer.C:
		return nil, ErrReadTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the socket down and unblocks the read pump.
func (c *WSClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = conn.Close()
		c.logger.Info("websocket connection closed")
	})
	return err
}

func (c *WSClient) pump(conn *websocket.Conn, frames chan<- []byte, dead chan struct{}) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			close(dead)
			return
		}

		select {
		case frames <- frame:
		case <-c.closed:
			return
		}
	}
}

func (c *WSClient) readErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
