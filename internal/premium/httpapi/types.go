package httpapi

import (
	"premiumflow/internal/premium/memorystore"
	"premiumflow/internal/premium/stats"
	"premiumflow/pkg/alpaca"
)

// DataResponse is what the dashboard polls.
type DataResponse struct {
	Trades    []memorystore.Trade `json:"trades"`
	Connected bool                `json:"connected"`
	State     string              `json:"state"`
	Threshold float64             `json:"threshold"`
	LastError string              `json:"last_error,omitempty"`
}

type ConnectRequest struct {
	Threshold *float64 `json:"threshold"`
}

type ThresholdRequest struct {
	Threshold *float64 `json:"threshold"`
}

// ActionResponse answers connect, disconnect and threshold changes.
type ActionResponse struct {
	Success   bool    `json:"success"`
	Threshold float64 `json:"threshold,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HistoricalResponse struct {
	Trades map[string][]alpaca.HistoricalTrade `json:"trades"`
}

type StatsResponse struct {
	Overall       stats.Summary       `json:"overall"`
	Ticker        string              `json:"ticker,omitempty"`
	TickerSummary *stats.Summary      `json:"ticker_summary,omitempty"`
	Distribution  []stats.Bucket      `json:"distribution"`
	TopTickers    []stats.TickerCount `json:"top_tickers"`
}

type ArchiveResponse struct {
	Trades []memorystore.Trade `json:"trades"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Feed   string            `json:"feed"`
	Checks map[string]string `json:"checks,omitempty"`
}
