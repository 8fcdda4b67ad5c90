package alpaca

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message is the envelope shared by every stream message. Control fields and
// trade fields are decoded together; Type decides which ones are meaningful.
type Message struct {
	Type MessageType `json:"T"`

	// control
	Msg  string `json:"msg,omitempty"`
	Code int    `json:"code,omitempty"`

	// trade
	Symbol    string     `json:"S,omitempty"` // option symbol, e.g. "AAPL240621C00220000"
	Price     float64    `json:"p,omitempty"`
	Size      int        `json:"s,omitempty"`
	Timestamp Timestamp  `json:"t"`
	Exchange  string     `json:"x,omitempty"`
	Condition Conditions `json:"c,omitempty"`

	// subscription ack
	Trades []string `json:"trades,omitempty"`
}

// IsTrade reports whether the message carries a trade.
func (m Message) IsTrade() bool { return m.Type == TypeTrade }

// DecodeFrame splits a websocket frame into messages. The stream sends JSON
// arrays, but single objects are accepted too.
func DecodeFrame(frame []byte) ([]Message, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var msgs []Message
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		return msgs, nil
	}

	var msg Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return []Message{msg}, nil
}

// EncodeFrame is the inverse of DecodeFrame and always produces an array.
func EncodeFrame(msgs ...Message) ([]byte, error) {
	return json.Marshal(msgs)
}

// Timestamp accepts RFC3339 strings or epoch milliseconds.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}

	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("parse timestamp %s: %w", b, err)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Conditions accepts a single condition code or a list of them.
type Conditions []string

func (c *Conditions) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*c = list
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s != "" {
		*c = Conditions{s}
	}
	return nil
}

// String joins the codes with commas.
func (c Conditions) String() string {
	return strings.Join(c, ",")
}

// authRequest and subscribeRequest are the client-to-server messages.
type authRequest struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

type subscribeRequest struct {
	Action string   `json:"action"`
	Trades []string `json:"trades"`
}
