package alpaca

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// go test -v --run TestParseHistoricalQuery
func TestParseHistoricalQuery(t *testing.T) {
	q, err := ParseHistoricalQuery("aapl240621c00220000, SPY251219P00592500", "2024-06-01", "2024-06-21T20:00:00Z", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.Symbols) != 2 || q.Symbols[0] != "AAPL240621C00220000" {
		t.Errorf("symbols = %v", q.Symbols)
	}
	if q.Limit != defaultHistoricalLimit {
		t.Errorf("limit = %d, want %d", q.Limit, defaultHistoricalLimit)
	}
	if !q.Start.Before(q.End) {
		t.Errorf("start %s should be before end %s", q.Start, q.End)
	}
}

// go test -v --run TestParseHistoricalQueryRejects
func TestParseHistoricalQueryRejects(t *testing.T) {
	cases := []struct {
		name                       string
		symbols, start, end, limit string
	}{
		{"missing symbols", "", "2024-06-01", "2024-06-02", ""},
		{"missing start", "SPY", "", "2024-06-02", ""},
		{"bad start", "SPY", "yesterday", "2024-06-02", ""},
		{"reversed", "SPY", "2024-06-03", "2024-06-02", ""},
		{"bad limit", "SPY", "2024-06-01", "2024-06-02", "lots"},
		{"zero limit", "SPY", "2024-06-01", "2024-06-02", "0"},
		{"only commas", ",,", "2024-06-01", "2024-06-02", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseHistoricalQuery(tc.symbols, tc.start, tc.end, tc.limit)
			if !errors.Is(err, ErrInvalidQuery) {
				t.Fatalf("err = %v, want ErrInvalidQuery", err)
			}
		})
	}
}

// go test -v --run TestParseHistoricalQueryCapsLimit
func TestParseHistoricalQueryCapsLimit(t *testing.T) {
	q, err := ParseHistoricalQuery("SPY", "2024-06-01", "2024-06-02", "999999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit != maxHistoricalLimit {
		t.Errorf("limit = %d, want %d", q.Limit, maxHistoricalLimit)
	}
}

// go test -v --run TestPremium
func TestPremium(t *testing.T) {
	if got := Premium(2.5, 40); got != 10000 {
		t.Errorf("premium = %v, want 10000", got)
	}
}

// go test -v --run TestHistoricalClientGetOptionTrades
func TestHistoricalClientGetOptionTrades(t *testing.T) {
	requests := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case requests <- r.Clone(r.Context()):
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"trades":{"AAPL240621C00220000":[` +
			`{"t":"2024-06-03T14:30:05Z","p":2.5,"s":40,"x":"C","c":"I"},` +
			`{"t":"2024-06-03T14:29:00Z","p":1.2,"s":5,"x":"N","c":"S"}]},"next_page_token":null}`))
	}))
	defer srv.Close()

	c := NewHistoricalClient("key", "secret", srv.URL)
	q, err := ParseHistoricalQuery("AAPL240621C00220000", "2024-06-03", "2024-06-04", "10")
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}

	got, err := c.GetOptionTrades(q)
	if err != nil {
		t.Fatalf("get option trades: %v", err)
	}
	r := <-requests
	if r.URL.Path != "/v1beta1/options/trades" || r.URL.Query().Get("symbols") != "AAPL240621C00220000" ||
		r.Header.Get("APCA-API-KEY-ID") != "key" || r.URL.Query().Get("sort") != "desc" {
		t.Errorf("unexpected request: %s %v", r.URL, r.Header)
	}

	trades := got["AAPL240621C00220000"]
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	first := trades[0]
	if !first.Timestamp.Equal(time.Date(2024, 6, 3, 14, 30, 5, 0, time.UTC)) {
		t.Errorf("timestamp = %s", first.Timestamp)
	}
	if first.Price != 2.5 || first.Size != 40 || first.Premium != 10000 || first.Exchange != "C" || first.Condition != "I" {
		t.Errorf("unexpected trade: %+v", first)
	}
}

// go test -v --run TestHistoricalClientAPIError
func TestHistoricalClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":40310000,"message":"forbidden"}`))
	}))
	defer srv.Close()

	c := NewHistoricalClient("key", "bad", srv.URL)
	q, _ := ParseHistoricalQuery("SPY", "2024-06-03", "2024-06-04", "")
	if _, err := c.GetOptionTrades(q); err == nil {
		t.Fatal("expected error from rejected request")
	}
}
