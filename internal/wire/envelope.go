package wire

import (
	"encoding/json"
	"time"

	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// Envelope is one inbound streamed message: a topic plus an undecoded payload.
type Envelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// TickPayload carries a quote or trade tick. Quote ticks populate Bid/Ask,
// trade ticks populate Last. Pointer fields distinguish absent from zero so a
// partial update never clears cached state.
type TickPayload struct {
	Last      *float64 `json:"last,omitempty"`
	Bid       *float64 `json:"bid,omitempty"`
	Ask       *float64 `json:"ask,omitempty"`
	Timestamp int64    `json:"timestamp"` // unix milliseconds
}

// Time returns the payload timestamp as a time.Time.
func (p TickPayload) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// DecodeTick decodes a tick envelope payload.
func DecodeTick(data json.RawMessage) (TickPayload, error) {
	var payload TickPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return TickPayload{}, errors.Wrap(errors.ErrCodeDecodeFailed, "failed to decode tick payload", err)
	}

	return payload, nil
}

// CandleUpdateKind tags a live-bar update.
type CandleUpdateKind string

const (
	// CandleUpdateEmpty carries no bar data and is ignored.
	CandleUpdateEmpty CandleUpdateKind = "empty"
	// CandleUpdateLive replaces the in-progress live bar wholesale.
	CandleUpdateLive CandleUpdateKind = "live"
	// CandleUpdateCompleted closes the bar at its timestamp.
	CandleUpdateCompleted CandleUpdateKind = "completed"
)

// CandleUpdate is one live-bar update from a report.candle stream.
type CandleUpdate struct {
	Kind      CandleUpdateKind `json:"kind"`
	Timestamp int64            `json:"timestamp"` // unix milliseconds
	Open      float64          `json:"open"`
	High      float64          `json:"high"`
	Low       float64          `json:"low"`
	Close     float64          `json:"close"`
	Volume    float64          `json:"volume"`
}

// Bar converts the update's OHLCV snapshot into a Bar.
func (u CandleUpdate) Bar() types.Bar {
	return types.Bar{
		Time:   time.UnixMilli(u.Timestamp),
		Open:   u.Open,
		High:   u.High,
		Low:    u.Low,
		Close:  u.Close,
		Volume: u.Volume,
	}
}

// DecodeCandleUpdate decodes a report.candle envelope payload.
func DecodeCandleUpdate(data json.RawMessage) (CandleUpdate, error) {
	var update CandleUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return CandleUpdate{}, errors.Wrap(errors.ErrCodeDecodeFailed, "failed to decode candle update", err)
	}

	switch update.Kind {
	case CandleUpdateEmpty, CandleUpdateLive, CandleUpdateCompleted:
		return update, nil
	default:
		return CandleUpdate{}, errors.Newf(errors.ErrCodeDecodeFailed, "unknown candle update kind %q", update.Kind)
	}
}

// ATRUpdate is one streaming ATR value from a report.atr stream.
type ATRUpdate struct {
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

// DecodeATRUpdate decodes a report.atr envelope payload.
func DecodeATRUpdate(data json.RawMessage) (ATRUpdate, error) {
	var update ATRUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return ATRUpdate{}, errors.Wrap(errors.ErrCodeDecodeFailed, "failed to decode ATR update", err)
	}

	return update, nil
}
