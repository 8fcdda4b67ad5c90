package alpaca

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

const (
	defaultHistoricalLimit = 1000
	maxHistoricalLimit     = 10000
)

// ErrInvalidQuery marks a historical query rejected before it reaches the API.
var ErrInvalidQuery = errors.New("alpaca: invalid historical query")

// HistoricalQuery selects option trades by symbol and time range.
type HistoricalQuery struct {
	Symbols []string
	Start   time.Time
	End     time.Time
	Limit   int
}

// HistoricalTrade is a single trade returned by the historical endpoint.
type HistoricalTrade struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Size      uint32    `json:"size"`
	Premium   float64   `json:"premium"`
	Exchange  string    `json:"exchange"`
	Condition string    `json:"condition"`
}

// ParseHistoricalQuery validates raw query parameters. start and end accept
// RFC3339 timestamps or plain dates.
func ParseHistoricalQuery(symbols, start, end, limit string) (HistoricalQuery, error) {
	var q HistoricalQuery

	if symbols == "" || start == "" || end == "" {
		return q, fmt.Errorf("%w: missing required parameters (symbols, start, end)", ErrInvalidQuery)
	}

	for _, s := range strings.Split(symbols, ",") {
		if s = strings.TrimSpace(strings.ToUpper(s)); s != "" {
			q.Symbols = append(q.Symbols, s)
		}
	}
	if len(q.Symbols) == 0 {
		return q, fmt.Errorf("%w: no symbols given", ErrInvalidQuery)
	}

	var err error
	if q.Start, err = parseQueryTime(start); err != nil {
		return q, fmt.Errorf("%w: start: %v", ErrInvalidQuery, err)
	}
	if q.End, err = parseQueryTime(end); err != nil {
		return q, fmt.Errorf("%w: end: %v", ErrInvalidQuery, err)
	}
	if q.End.Before(q.Start) {
		return q, fmt.Errorf("%w: end is before start", ErrInvalidQuery)
	}

	q.Limit = defaultHistoricalLimit
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return q, fmt.Errorf("%w: limit must be a positive integer", ErrInvalidQuery)
		}
		q.Limit = min(n, maxHistoricalLimit)
	}

	return q, nil
}

func parseQueryTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// HistoricalClient fetches option trades from the Alpaca market data REST API.
type HistoricalClient struct {
	client *marketdata.Client
}

func NewHistoricalClient(apiKey, apiSecret, dataURL string) *HistoricalClient {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &HistoricalClient{client: marketdata.NewClient(opts)}
}

// GetOptionTrades returns trades per symbol, newest first.
func (c *HistoricalClient) GetOptionTrades(q HistoricalQuery) (map[string][]HistoricalTrade, error) {
	raw, err := c.client.GetOptionMultiTrades(q.Symbols, marketdata.GetOptionTradesRequest{
		Start:      q.Start,
		End:        q.End,
		TotalLimit: q.Limit,
		Sort:       marketdata.SortDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("get option trades: %w", err)
	}

	out := make(map[string][]HistoricalTrade, len(raw))
	for symbol, trades := range raw {
		list := make([]HistoricalTrade, 0, len(trades))
		for _, t := range trades {
			list = append(list, HistoricalTrade{
				Timestamp: t.Timestamp,
				Price:     t.Price,
				Size:      t.Size,
				Premium:   Premium(t.Price, int(t.Size)),
				Exchange:  t.Exchange,
				Condition: t.Condition,
			})
		}
		out[symbol] = list
	}
	return out, nil
}

// ContractMultiplier is the number of shares per standard contract.
const ContractMultiplier = 100

// Premium is the notional value of a trade: price x size x 100.
func Premium(price float64, size int) float64 {
	return price * float64(size) * ContractMultiplier
}
