package indicator

import (
	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// RSI computes the Relative Strength Index with Wilder smoothing. The seed
// average gain/loss is the simple mean over the first period price changes,
// so the first output point is anchored at bars[period] and requires
// period+1 bars. Subsequent averages apply
//
//	avgGain = (avgGain*(period-1) + gain) / period
//
// and symmetrically for losses.
func RSI(bars []types.Bar, period int) ([]Point, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(bars) < period+1 {
		return []Point{}, nil
	}

	// Price changes between consecutive closes; change[i] belongs to bars[i+1].
	gains := make([]float64, len(bars)-1)
	losses := make([]float64, len(bars)-1)

	for i := 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGain := 0.0
	avgLoss := 0.0

	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	points := make([]Point, 0, len(bars)-period)
	points = append(points, Point{Time: bars[period].Time, Value: rsiValue(avgGain, avgLoss)})

	// Wilder's smoothing for every change after the seed window.
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		points = append(points, Point{Time: bars[i+1].Time, Value: rsiValue(avgGain, avgLoss)})
	}

	return points, nil
}

// rsiValue maps smoothed averages to the RSI scale. A zero average loss uses
// rs = 100 rather than dividing by zero.
func rsiValue(avgGain, avgLoss float64) float64 {
	rs := 100.0
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}

	return 100 - 100/(1+rs)
}
