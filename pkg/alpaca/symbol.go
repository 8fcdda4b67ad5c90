package alpaca

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	// minOptionSymbolLen is a one-letter root + YYMMDD + type + 8 strike digits.
	minOptionSymbolLen = 16

	expiryLayout  = "060102"
	displayLayout = "2006-01-02"

	// UnknownExpiration is reported when a symbol is too short to decode.
	UnknownExpiration = "Unknown"
)

// OptionSymbol is a decoded option contract identifier.
type OptionSymbol struct {
	Raw        string
	Ticker     string
	Expiration string    // "2006-01-02", the raw digits if unparsable, or UnknownExpiration
	Expiry     time.Time // zero when Expiration could not be parsed
	Type       OptionType
	Strike     float64
}

// Valid reports whether every positional field decoded cleanly.
func (o OptionSymbol) Valid() bool {
	return !o.Expiry.IsZero() && o.Type != OptionUnknown && o.Strike > 0
}

// ParseOptionSymbol decodes ROOT + YYMMDD + C|P + strike*1000. It never fails:
// symbols shorter than the minimum fall back to the whole symbol as ticker.
func ParseOptionSymbol(symbol string) OptionSymbol {
	out := OptionSymbol{Raw: symbol}

	if len(symbol) < minOptionSymbolLen {
		out.Ticker = symbol
		out.Expiration = UnknownExpiration
		out.Type = OptionUnknown
		return out
	}

	rootLen := strings.IndexFunc(symbol, unicode.IsDigit)
	if rootLen < 0 || rootLen+7 > len(symbol) {
		out.Ticker = symbol
		out.Expiration = UnknownExpiration
		out.Type = OptionUnknown
		return out
	}

	// OCC roots are space padded to six characters
	out.Ticker = strings.TrimSpace(symbol[:rootLen])

	datePart := symbol[rootLen : rootLen+6]
	if expiry, err := time.Parse(expiryLayout, datePart); err == nil {
		out.Expiry = expiry
		out.Expiration = expiry.Format(displayLayout)
	} else {
		out.Expiration = datePart
	}

	out.Type = parseOptionType(symbol[rootLen+6])

	// strike is an unsigned integer in thousandths
	if strike, err := strconv.ParseUint(symbol[rootLen+7:], 10, 64); err == nil {
		out.Strike = float64(strike) / 1000
	}

	return out
}

// FormatOptionSymbol encodes a contract with the convention ParseOptionSymbol reads.
func FormatOptionSymbol(ticker string, expiry time.Time, typ OptionType, strike float64) string {
	return fmt.Sprintf("%s%s%s%08d",
		ticker,
		expiry.Format(expiryLayout),
		typ.Code(),
		int64(math.Round(strike*1000)),
	)
}
