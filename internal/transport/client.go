package transport

import (
	"context"
	"encoding/json"

	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
	"github.com/nsbm60/marketdata-ui-sub001/internal/wire"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// Client is the typed control-channel surface over a Gateway.
type Client struct {
	gateway Gateway
}

// NewClient wraps a gateway with typed request methods.
func NewClient(gateway Gateway) *Client {
	return &Client{gateway: gateway}
}

// GetChartData requests a window of historical bars.
func (c *Client) GetChartData(ctx context.Context, req wire.ChartDataRequest) (wire.ChartDataResponse, error) {
	req.Symbol = types.NormalizeSymbol(req.Symbol)

	raw, err := c.gateway.Request(ctx, wire.MethodGetChartData, req)
	if err != nil {
		return wire.ChartDataResponse{}, err
	}

	var resp wire.ChartDataResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return wire.ChartDataResponse{}, errors.Wrap(errors.ErrCodeDecodeFailed, "failed to decode chart data response", err)
	}

	return resp, nil
}

// StopCandleReport tells the backend to stop computing a candle report
// nobody consumes. Fire and forget.
func (c *Client) StopCandleReport(symbol, timeframe string) error {
	return c.gateway.Notify(wire.MethodStopCandleReport, wire.StopCandleReportRequest{
		Symbol:    types.NormalizeSymbol(symbol),
		Timeframe: timeframe,
	})
}
