package indicator

import (
	"time"

	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// MACDSeries holds the three aligned output lines of a MACD computation.
// Signal and Histogram timestamps are a suffix of Line's timestamps.
type MACDSeries struct {
	Line      []Point
	Signal    []Point
	Histogram []Point
}

// MACD computes the Moving Average Convergence Divergence series.
// The MACD line is fastEMA - slowEMA aligned by exact timestamp (the two
// EMAs start at different offsets, so alignment is by timestamp, not index);
// the signal line is a seed-then-smooth EMA over the MACD line; the
// histogram is line - signal at every signal timestamp.
func MACD(bars []types.Bar, fastPeriod, slowPeriod, signalPeriod int) (MACDSeries, error) {
	if fastPeriod <= 0 {
		return MACDSeries{}, errors.Newf(errors.ErrCodeInvalidPeriod, "fastPeriod must be a positive integer, got %d", fastPeriod)
	}

	if slowPeriod <= 0 {
		return MACDSeries{}, errors.Newf(errors.ErrCodeInvalidPeriod, "slowPeriod must be a positive integer, got %d", slowPeriod)
	}

	if signalPeriod <= 0 {
		return MACDSeries{}, errors.Newf(errors.ErrCodeInvalidPeriod, "signalPeriod must be a positive integer, got %d", signalPeriod)
	}

	if fastPeriod >= slowPeriod {
		return MACDSeries{}, errors.Newf(errors.ErrCodeInvalidParameter, "fastPeriod %d must be shorter than slowPeriod %d", fastPeriod, slowPeriod)
	}

	fast, err := EMA(bars, fastPeriod)
	if err != nil {
		return MACDSeries{}, err
	}

	slow, err := EMA(bars, slowPeriod)
	if err != nil {
		return MACDSeries{}, err
	}

	fastByTime := make(map[time.Time]float64, len(fast))
	for _, p := range fast {
		fastByTime[p.Time] = p.Value
	}

	line := make([]Point, 0, len(slow))

	for _, p := range slow {
		fastValue, ok := fastByTime[p.Time]
		if !ok {
			// The slow EMA starts later than the fast one, so every slow
			// timestamp must have a fast counterpart.
			return MACDSeries{}, errors.Newf(errors.ErrCodeIndicatorCalculation, "no fast EMA value at %s", p.Time)
		}

		line = append(line, Point{Time: p.Time, Value: fastValue - p.Value})
	}

	signal := emaOverPoints(line, signalPeriod)

	lineByTime := make(map[time.Time]float64, len(line))
	for _, p := range line {
		lineByTime[p.Time] = p.Value
	}

	histogram := make([]Point, 0, len(signal))
	for _, p := range signal {
		histogram = append(histogram, Point{Time: p.Time, Value: lineByTime[p.Time] - p.Value})
	}

	return MACDSeries{Line: line, Signal: signal, Histogram: histogram}, nil
}

// emaOverPoints applies the same seed-then-smooth EMA rule used for closes to
// an already-computed indicator series.
func emaOverPoints(points []Point, period int) []Point {
	if len(points) < period {
		return []Point{}
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += points[i].Value
	}

	out := make([]Point, 0, len(points)-period+1)

	ema := sum / float64(period)
	out = append(out, Point{Time: points[period-1].Time, Value: ema})

	alpha := 2.0 / float64(period+1)
	for i := period; i < len(points); i++ {
		ema = (points[i].Value-ema)*alpha + ema
		out = append(out, Point{Time: points[i].Time, Value: ema})
	}

	return out
}
