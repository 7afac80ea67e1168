package indicator

import (
	"time"

	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
)

// barsFromCloses builds a 5-minute bar series starting at 09:30 with the
// given closes. Open/high/low mirror the close; volume is constant.
func barsFromCloses(closes ...float64) []types.Bar {
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	bars := make([]types.Bar, 0, len(closes))
	for i, close := range closes {
		bars = append(bars, types.Bar{
			Time:   start.Add(time.Duration(i) * 5 * time.Minute),
			Open:   close,
			High:   close,
			Low:    close,
			Close:  close,
			Volume: 1000,
		})
	}

	return bars
}
