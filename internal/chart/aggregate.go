// Package chart assembles a paginated rolling window of historical bars
// merged with one in-progress live bar, and applies client-side aggregation
// for timeframes the backend does not natively emit.
package chart

import (
	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
)

// AggregateBars combines consecutive chunks of `multiple` raw bars into one
// coarser bar each: open from the chunk's first bar, close from its last,
// high/low are the chunk extremes, volume is the exact sum and the timestamp
// is the chunk's first. A trailing partial chunk still emits one bar.
// A multiple of 1 or less is the identity.
func AggregateBars(bars []types.Bar, multiple int) []types.Bar {
	if multiple <= 1 || len(bars) == 0 {
		return bars
	}

	out := make([]types.Bar, 0, (len(bars)+multiple-1)/multiple)

	for start := 0; start < len(bars); start += multiple {
		end := start + multiple
		if end > len(bars) {
			end = len(bars)
		}

		chunk := bars[start:end]
		combined := types.Bar{
			Time:   chunk[0].Time,
			Open:   chunk[0].Open,
			High:   chunk[0].High,
			Low:    chunk[0].Low,
			Close:  chunk[len(chunk)-1].Close,
			Volume: 0,
		}

		for _, bar := range chunk {
			if bar.High > combined.High {
				combined.High = bar.High
			}
			if bar.Low < combined.Low {
				combined.Low = bar.Low
			}
			combined.Volume += bar.Volume
		}

		out = append(out, combined)
	}

	return out
}
