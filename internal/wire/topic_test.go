package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
)

func TestParseTopicTick(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  Topic
	}{
		{
			name:  "equity quote",
			topic: "md.equity.quote.AAPL",
			want:  Topic{Kind: TopicTick, Channel: types.ChannelEquity, Tick: TickQuote, Symbol: "AAPL"},
		},
		{
			name:  "equity trade",
			topic: "md.equity.trade.SPY",
			want:  Topic{Kind: TopicTick, Channel: types.ChannelEquity, Tick: TickTrade, Symbol: "SPY"},
		},
		{
			name:  "option quote",
			topic: "md.option.quote.NVDA240119C00500000",
			want:  Topic{Kind: TopicTick, Channel: types.ChannelOption, Tick: TickQuote, Symbol: "NVDA240119C00500000"},
		},
		{
			name:  "symbol normalized to uppercase",
			topic: "md.equity.trade.nvda",
			want:  Topic{Kind: TopicTick, Channel: types.ChannelEquity, Tick: TickTrade, Symbol: "NVDA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTopic(tt.topic))
		})
	}
}

func TestParseTopicReport(t *testing.T) {
	got := ParseTopic("report.candle.NVDA.5m")
	assert.Equal(t, Topic{Kind: TopicCandle, Symbol: "NVDA", Timeframe: "5m"}, got)

	got = ParseTopic("report.atr.spy.1d")
	assert.Equal(t, Topic{Kind: TopicATR, Symbol: "SPY", Timeframe: "1d"}, got)
}

func TestParseTopicUnrecognized(t *testing.T) {
	unrecognized := []string{
		"",
		"md",
		"md.equity.quote",
		"md.equity.quote.AAPL.extra",
		"md.futures.quote.ES",
		"md.equity.level2.AAPL",
		"md.equity.quote.",
		"report.greeks.NVDA.5m",
		"report.candle..5m",
		"report.candle.NVDA.",
		"control.candle.NVDA.5m",
	}

	for _, topic := range unrecognized {
		assert.Equal(t, TopicUnrecognized, ParseTopic(topic).Kind, "topic %q", topic)
	}
}

func TestTopicBuildersRoundTrip(t *testing.T) {
	tick := ParseTopic(TickTopic(types.ChannelOption, TickTrade, "nvda"))
	assert.Equal(t, Topic{Kind: TopicTick, Channel: types.ChannelOption, Tick: TickTrade, Symbol: "NVDA"}, tick)

	candle := ParseTopic(CandleTopic("aapl", "15m"))
	assert.Equal(t, Topic{Kind: TopicCandle, Symbol: "AAPL", Timeframe: "15m"}, candle)

	atr := ParseTopic(ATRTopic("AAPL", "1h"))
	assert.Equal(t, Topic{Kind: TopicATR, Symbol: "AAPL", Timeframe: "1h"}, atr)
}
