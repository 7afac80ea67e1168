package indicator

import (
	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// RibbonLine is one EMA line of a ribbon, tagged with its period.
type RibbonLine struct {
	Period int
	Points []Point
}

// Ribbon computes count independent EMA lines with periods
// basePeriod + k*step for k in [0, count).
func Ribbon(bars []types.Bar, count, basePeriod, step int) ([]RibbonLine, error) {
	if count <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "ribbon count must be a positive integer, got %d", count)
	}

	if basePeriod <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "ribbon base period must be a positive integer, got %d", basePeriod)
	}

	if step < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "ribbon step must be non-negative, got %d", step)
	}

	lines := make([]RibbonLine, 0, count)

	for k := 0; k < count; k++ {
		period := basePeriod + k*step

		points, err := EMA(bars, period)
		if err != nil {
			return nil, err
		}

		lines = append(lines, RibbonLine{Period: period, Points: points})
	}

	return lines, nil
}
