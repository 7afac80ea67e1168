package types

import (
	"strings"
	"time"
)

// Channel identifies an independent price namespace. The same literal symbol
// string can exist on both channels with different meaning.
type Channel string

const (
	ChannelEquity Channel = "equity"
	ChannelOption Channel = "option"
)

// IsValid reports whether the channel is one of the known namespaces.
func (c Channel) IsValid() bool {
	return c == ChannelEquity || c == ChannelOption
}

// Session is the intraday trading-hours filter applied to a bar window.
type Session string

const (
	SessionRegular  Session = "regular"
	SessionExtended Session = "extended"
)

// NormalizeSymbol returns the canonical identity key for a ticker or
// contract identifier.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Bar is one committed OHLCV interval. Bars are immutable once committed and
// a bar series is strictly time-ascending with unique timestamps.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceData is the last-known quote/trade state for one (symbol, channel).
// It is merge-updated field by field; a partial update never clears the
// fields it does not carry.
type PriceData struct {
	Last float64   `json:"last"`
	Bid  float64   `json:"bid"`
	Ask  float64   `json:"ask"`
	Time time.Time `json:"time"`

	// HasLast/HasBid/HasAsk track which fields have ever been populated,
	// so a quote-only symbol does not report a zero last price.
	HasLast bool `json:"hasLast"`
	HasBid  bool `json:"hasBid"`
	HasAsk  bool `json:"hasAsk"`
}
