package stream

import (
	"time"

	"premiumflow/internal/premium/memorystore"
	"premiumflow/pkg/alpaca"
)

const timeLayout = "15:04:05"

// ToTrade decodes a raw trade message into a dashboard Trade. Malformed
// symbols decode best-effort and never fail.
func ToTrade(msg alpaca.Message, loc *time.Location, now time.Time) memorystore.Trade {
	sym := alpaca.ParseOptionSymbol(msg.Symbol)

	ts := msg.Timestamp.Time
	if ts.IsZero() {
		ts = now
	}
	if loc == nil {
		loc = time.UTC
	}

	return memorystore.Trade{
		Symbol:     msg.Symbol,
		Ticker:     sym.Ticker,
		Strike:     sym.Strike,
		Expiration: sym.Expiration,
		OptionType: string(sym.Type),
		Price:      msg.Price,
		Size:       msg.Size,
		Premium:    alpaca.Premium(msg.Price, msg.Size),
		Time:       ts.In(loc).Format(timeLayout),
		Exchange:   msg.Exchange,
		Condition:  msg.Condition.String(),
		Timestamp:  ts.UTC(),
	}
}
