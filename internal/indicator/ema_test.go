package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

type EMATestSuite struct {
	suite.Suite
}

func TestEMASuite(t *testing.T) {
	suite.Run(t, new(EMATestSuite))
}

func (suite *EMATestSuite) TestInvalidPeriod() {
	_, err := EMA(barsFromCloses(1, 2, 3), 0)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *EMATestSuite) TestInsufficientBarsYieldEmptySeries() {
	points, err := EMA(barsFromCloses(1, 2), 5)
	suite.NoError(err)
	suite.Empty(points)
}

func (suite *EMATestSuite) TestSeedIsSMAOfFirstPeriodCloses() {
	bars := barsFromCloses(10, 20, 30, 40)

	points, err := EMA(bars, 3)
	suite.NoError(err)
	suite.Len(points, 2)

	// Seed at bars[2] is the SMA of the first three closes.
	suite.Equal(bars[2].Time, points[0].Time)
	suite.Equal(20.0, points[0].Value)

	// Next value applies the smoothing recurrence with alpha = 2/(3+1).
	alpha := 2.0 / 4.0
	want := (40.0-20.0)*alpha + 20.0
	suite.Equal(want, points[1].Value)
}

func (suite *EMATestSuite) TestDeterministicUnderHistoryExtension() {
	long := barsFromCloses(10, 11, 13, 12, 14, 16, 15, 17, 19, 18, 20, 22)
	short := long[:8]

	longPoints, err := EMA(long, 4)
	suite.NoError(err)

	shortPoints, err := EMA(short, 4)
	suite.NoError(err)

	// Every timestamp present in both computations carries an identical value.
	longByTime := make(map[int64]float64, len(longPoints))
	for _, p := range longPoints {
		longByTime[p.Time.UnixMilli()] = p.Value
	}

	for _, p := range shortPoints {
		longValue, ok := longByTime[p.Time.UnixMilli()]
		suite.True(ok, "timestamp %s missing from longer computation", p.Time)
		suite.Equal(longValue, p.Value, "value diverged at %s", p.Time)
	}
}

func (suite *EMATestSuite) TestConstantSeriesStaysConstant() {
	bars := barsFromCloses(50, 50, 50, 50, 50, 50, 50)

	points, err := EMA(bars, 3)
	suite.NoError(err)

	for _, p := range points {
		suite.Equal(50.0, p.Value)
	}
}

type RibbonTestSuite struct {
	suite.Suite
}

func TestRibbonSuite(t *testing.T) {
	suite.Run(t, new(RibbonTestSuite))
}

func (suite *RibbonTestSuite) TestInvalidParameters() {
	bars := barsFromCloses(1, 2, 3)

	_, err := Ribbon(bars, 0, 5, 2)
	suite.Error(err)

	_, err = Ribbon(bars, 3, 0, 2)
	suite.Error(err)

	_, err = Ribbon(bars, 3, 5, -1)
	suite.Error(err)
}

func (suite *RibbonTestSuite) TestLinePeriods() {
	bars := barsFromCloses(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)

	lines, err := Ribbon(bars, 4, 2, 3)
	suite.NoError(err)
	suite.Len(lines, 4)
	suite.Equal(2, lines[0].Period)
	suite.Equal(5, lines[1].Period)
	suite.Equal(8, lines[2].Period)
	suite.Equal(11, lines[3].Period)
}

func (suite *RibbonTestSuite) TestLinesMatchStandaloneEMA() {
	bars := barsFromCloses(10, 12, 11, 13, 15, 14, 16, 18, 17, 19)

	lines, err := Ribbon(bars, 2, 3, 2)
	suite.NoError(err)

	for _, line := range lines {
		want, err := EMA(bars, line.Period)
		suite.NoError(err)
		suite.Equal(want, line.Points)
	}
}
