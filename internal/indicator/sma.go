package indicator

import (
	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// SMA computes the simple moving average of closes over the trailing period.
// The output has max(0, len(bars)-period+1) points; the value at output index
// i is the mean of the closes of bars[i : i+period].
func SMA(bars []types.Bar, period int) ([]Point, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(bars) < period {
		return []Point{}, nil
	}

	points := make([]Point, 0, len(bars)-period+1)

	// Each window is summed independently so a value never carries rounding
	// drift from earlier windows.
	for i := period - 1; i < len(bars); i++ {
		points = append(points, Point{Time: bars[i].Time, Value: windowMean(bars[i-period+1 : i+1])})
	}

	return points, nil
}

// windowMean returns the mean close of the given bars.
func windowMean(bars []types.Bar) float64 {
	sum := 0.0
	for _, bar := range bars {
		sum += bar.Close
	}

	return sum / float64(len(bars))
}
