package alpaca

// MessageType is the "T" discriminator carried by every stream message.
type MessageType string

const (
	TypeTrade        MessageType = "t"
	TypeQuote        MessageType = "q"
	TypeSuccess      MessageType = "success"
	TypeError        MessageType = "error"
	TypeSubscription MessageType = "subscription"
)

// Control message texts sent with TypeSuccess.
const (
	MsgConnected     = "connected"
	MsgAuthenticated = "authenticated"
)

// Client actions.
const (
	ActionAuth        = "auth"
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// OptionType is the right carried by an option contract.
type OptionType string

const (
	OptionCall    OptionType = "Call"
	OptionPut     OptionType = "Put"
	OptionUnknown OptionType = "?"
)

// Code returns the single-letter code used in option symbols.
func (o OptionType) Code() string {
	switch o {
	case OptionCall:
		return "C"
	case OptionPut:
		return "P"
	default:
		return "?"
	}
}

func parseOptionType(code byte) OptionType {
	switch code {
	case 'C', 'c':
		return OptionCall
	case 'P', 'p':
		return OptionPut
	default:
		return OptionUnknown
	}
}
