package memorystore

import "time"

// Trade is an admitted option trade as shown on the dashboard.
// It is immutable once stored.
type Trade struct {
	ID         string    `json:"id"`          // uuid assigned at admission
	Symbol     string    `json:"symbol"`      // raw option symbol, e.g. "AAPL240621C00220000"
	Ticker     string    `json:"ticker"`      // underlying, e.g. "AAPL"
	Strike     float64   `json:"strike"`      // strike price in dollars
	Expiration string    `json:"expiration"`  // "2006-01-02", or "Unknown"
	OptionType string    `json:"option_type"` // "Call", "Put" or "?"
	Price      float64   `json:"price"`       // per-share premium
	Size       int       `json:"size"`        // contracts
	Premium    float64   `json:"premium"`     // price * size * 100
	Time       string    `json:"time"`        // wall clock in the display timezone, "15:04:05"
	Exchange   string    `json:"exchange"`
	Condition  string    `json:"condition"`
	Timestamp  time.Time `json:"timestamp"` // trade time as reported upstream
}
