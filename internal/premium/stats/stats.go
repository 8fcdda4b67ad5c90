package stats

import (
	"sort"

	"premiumflow/internal/premium/memorystore"
)

const DefaultTopTickers = 10

// Summary aggregates premium over a set of trades.
type Summary struct {
	Count   int     `json:"count"`
	Highest float64 `json:"highest"`
	Average float64 `json:"average"`
	Total   float64 `json:"total"`
}

type Bucket struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max,omitempty"` // zero means unbounded
	Count int     `json:"count"`
}

type TickerCount struct {
	Ticker  string  `json:"ticker"`
	Count   int     `json:"count"`
	Premium float64 `json:"premium"`
}

var bucketEdges = []struct {
	label    string
	min, max float64
}{
	{"<10k", 0, 10000},
	{"10k-25k", 10000, 25000},
	{"25k-50k", 25000, 50000},
	{"50k-100k", 50000, 100000},
	{"100k-250k", 100000, 250000},
	{"250k-500k", 250000, 500000},
	{"500k+", 500000, 0},
}

// Summarize aggregates trades for ticker, or every trade when ticker is empty.
func Summarize(trades []memorystore.Trade, ticker string) Summary {
	var s Summary
	for _, t := range trades {
		if ticker != "" && t.Ticker != ticker {
			continue
		}
		s.Count++
		s.Total += t.Premium
		if t.Premium > s.Highest {
			s.Highest = t.Premium
		}
	}
	if s.Count > 0 {
		s.Average = s.Total / float64(s.Count)
	}
	return s
}

// Distribution counts trades per premium range. Ranges are [min, max).
func Distribution(trades []memorystore.Trade) []Bucket {
	out := make([]Bucket, len(bucketEdges))
	for i, e := range bucketEdges {
		out[i] = Bucket{Label: e.label, Min: e.min, Max: e.max}
	}
	for _, t := range trades {
		for i, e := range bucketEdges {
			if t.Premium >= e.min && (e.max == 0 || t.Premium < e.max) {
				out[i].Count++
				break
			}
		}
	}
	return out
}

// TopTickers ranks tickers by trade count, breaking ties by total premium
// and then by name.
func TopTickers(trades []memorystore.Trade, n int) []TickerCount {
	byTicker := make(map[string]*TickerCount)
	for _, t := range trades {
		tc, ok := byTicker[t.Ticker]
		if !ok {
			tc = &TickerCount{Ticker: t.Ticker}
			byTicker[t.Ticker] = tc
		}
		tc.Count++
		tc.Premium += t.Premium
	}

	out := make([]TickerCount, 0, len(byTicker))
	for _, tc := range byTicker {
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Premium != out[j].Premium {
			return out[i].Premium > out[j].Premium
		}
		return out[i].Ticker < out[j].Ticker
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
