package wire

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
)

// Method names on the gateway control channel.
const (
	MethodGetChartData     = "get_chart_data"
	MethodStopCandleReport = "stop_candle_report"
)

// Frame types for the market-data subscription channel.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
)

// SubscriptionFrame is emitted exactly on subscriber-count transitions across
// zero, to open or close a network subscription.
type SubscriptionFrame struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
	Symbols  []string `json:"symbols"`
}

// NewSubscriptionFrame builds a subscribe or unsubscribe frame for one
// (symbol, channel) pair.
func NewSubscriptionFrame(frameType string, channel types.Channel, symbol string) SubscriptionFrame {
	return SubscriptionFrame{
		Type:     frameType,
		Channels: []string{string(channel)},
		Symbols:  []string{types.NormalizeSymbol(symbol)},
	}
}

// ChartDataRequest is the get_chart_data request body. EndBefore, when set,
// turns the request into a pagination request with an exclusive upper bound.
type ChartDataRequest struct {
	Symbol    string                 `json:"symbol"`
	Timeframe string                 `json:"timeframe"`
	BarCount  int                    `json:"barCount"`
	Session   types.Session          `json:"session"`
	ATRPeriod optional.Option[int]   `json:"atrPeriod,omitempty"`
	EndBefore optional.Option[int64] `json:"endBefore,omitempty"` // unix milliseconds, exclusive
}

// BarPayload is one raw bar as encoded on the wire.
type BarPayload struct {
	Timestamp int64   `json:"timestamp"` // unix milliseconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Bar converts the payload into a Bar.
func (p BarPayload) Bar() types.Bar {
	return types.Bar{
		Time:   time.UnixMilli(p.Timestamp),
		Open:   p.Open,
		High:   p.High,
		Low:    p.Low,
		Close:  p.Close,
		Volume: p.Volume,
	}
}

// ChartDataResponse is the get_chart_data response body. When the backend's
// native granularity does not cover the requested timeframe it returns raw
// bars plus AggregateMultiple > 1 and the caller aggregates client-side.
type ChartDataResponse struct {
	Bars              []BarPayload `json:"bars"`
	AggregateMultiple int          `json:"aggregateMultiple"`
	HasMore           bool         `json:"hasMore"`
	ReportTopic       string       `json:"reportTopic"`
	ATR               *float64     `json:"atr,omitempty"`
	ATRReportTopic    string       `json:"atrReportTopic,omitempty"`
}

// StopCandleReportRequest is the fire-and-forget notification telling the
// backend to stop computing a candle report nobody consumes.
type StopCandleReportRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}
