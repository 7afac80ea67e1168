package indicator

import (
	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// EMA computes the exponential moving average of closes. The first output
// point is the SMA of the first period closes, anchored at bars[period-1];
// each subsequent point applies
//
//	ema = (close - ema_prev) * 2/(period+1) + ema_prev
//
// The computation is strictly left-to-right, so extending the history with
// newer bars never changes values at earlier timestamps.
func EMA(bars []types.Bar, period int) ([]Point, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(bars) < period {
		return []Point{}, nil
	}

	points := make([]Point, 0, len(bars)-period+1)

	// Seed with the SMA of the first period closes.
	ema := windowMean(bars[:period])
	points = append(points, Point{Time: bars[period-1].Time, Value: ema})

	alpha := 2.0 / float64(period+1)
	for i := period; i < len(bars); i++ {
		ema = (bars[i].Close-ema)*alpha + ema
		points = append(points, Point{Time: bars[i].Time, Value: ema})
	}

	return points, nil
}
