// Package wire decodes the gateway's loosely-typed message envelopes at the
// process boundary into strict tagged variants. Everything downstream of this
// package works with typed values only.
package wire

import (
	"strings"

	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
)

// TopicKind tags the decoded variant of an inbound topic.
type TopicKind int

const (
	// TopicUnrecognized marks a topic this core does not understand.
	// Unrecognized envelopes are dropped by the receiver.
	TopicUnrecognized TopicKind = iota
	// TopicTick is a market-data tick: md.<channel>.<kind>.<symbol>.
	TopicTick
	// TopicCandle is a live-bar update: report.candle.<symbol>.<timeframe>.
	TopicCandle
	// TopicATR is a streaming ATR update: report.atr.<symbol>.<timeframe>.
	TopicATR
)

// TickKind distinguishes quote ticks (bid/ask) from trade ticks (last).
type TickKind string

const (
	TickQuote TickKind = "quote"
	TickTrade TickKind = "trade"
)

// Topic is the decoded form of an inbound topic string. Fields are populated
// according to Kind; unused fields are zero.
type Topic struct {
	Kind      TopicKind
	Channel   types.Channel
	Tick      TickKind
	Symbol    string
	Timeframe string
}

// ParseTopic decodes a topic string into its tagged variant. Topics that do
// not match the grammar decode to TopicUnrecognized, never to an error.
func ParseTopic(topic string) Topic {
	parts := strings.Split(topic, ".")
	if len(parts) != 4 {
		return Topic{Kind: TopicUnrecognized}
	}

	switch parts[0] {
	case "md":
		return parseTickTopic(parts)
	case "report":
		return parseReportTopic(parts)
	default:
		return Topic{Kind: TopicUnrecognized}
	}
}

// parseTickTopic decodes md.<channel>.<kind>.<symbol>.
func parseTickTopic(parts []string) Topic {
	channel := types.Channel(parts[1])
	if !channel.IsValid() {
		return Topic{Kind: TopicUnrecognized}
	}

	kind := TickKind(parts[2])
	if kind != TickQuote && kind != TickTrade {
		return Topic{Kind: TopicUnrecognized}
	}

	symbol := types.NormalizeSymbol(parts[3])
	if symbol == "" {
		return Topic{Kind: TopicUnrecognized}
	}

	return Topic{
		Kind:    TopicTick,
		Channel: channel,
		Tick:    kind,
		Symbol:  symbol,
	}
}

// parseReportTopic decodes report.candle.<symbol>.<timeframe> and
// report.atr.<symbol>.<timeframe>.
func parseReportTopic(parts []string) Topic {
	symbol := types.NormalizeSymbol(parts[2])
	timeframe := parts[3]

	if symbol == "" || timeframe == "" {
		return Topic{Kind: TopicUnrecognized}
	}

	switch parts[1] {
	case "candle":
		return Topic{Kind: TopicCandle, Symbol: symbol, Timeframe: timeframe}
	case "atr":
		return Topic{Kind: TopicATR, Symbol: symbol, Timeframe: timeframe}
	default:
		return Topic{Kind: TopicUnrecognized}
	}
}

// TickTopic builds the topic string for a (channel, kind, symbol) tick stream.
func TickTopic(channel types.Channel, kind TickKind, symbol string) string {
	return "md." + string(channel) + "." + string(kind) + "." + types.NormalizeSymbol(symbol)
}

// CandleTopic builds the report topic string for a (symbol, timeframe) live-bar stream.
func CandleTopic(symbol, timeframe string) string {
	return "report.candle." + types.NormalizeSymbol(symbol) + "." + timeframe
}

// ATRTopic builds the report topic string for a (symbol, timeframe) ATR stream.
func ATRTopic(symbol, timeframe string) string {
	return "report.atr." + types.NormalizeSymbol(symbol) + "." + timeframe
}
