package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/nsbm60/marketdata-ui-sub001/mocks"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

type RSITestSuite struct {
	suite.Suite
}

func TestRSISuite(t *testing.T) {
	suite.Run(t, new(RSITestSuite))
}

func (suite *RSITestSuite) TestInvalidPeriod() {
	_, err := RSI(barsFromCloses(1, 2, 3), 0)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *RSITestSuite) TestNeedsPeriodPlusOneBars() {
	points, err := RSI(barsFromCloses(1, 2, 3), 3)
	suite.NoError(err)
	suite.Empty(points)

	points, err = RSI(barsFromCloses(1, 2, 3, 4), 3)
	suite.NoError(err)
	suite.Len(points, 1)
	// First value is anchored at bar index period.
	suite.Equal(barsFromCloses(1, 2, 3, 4)[3].Time, points[0].Time)
}

func (suite *RSITestSuite) TestAllGainsNearHundred() {
	bars := barsFromCloses(1, 2, 3, 4, 5, 6, 7, 8)

	points, err := RSI(bars, 4)
	suite.NoError(err)
	suite.NotEmpty(points)

	// Zero average loss maps to rs = 100.
	for _, p := range points {
		suite.InDelta(100-100.0/101.0, p.Value, 1e-9)
	}
}

func (suite *RSITestSuite) TestAllLossesIsZero() {
	bars := barsFromCloses(8, 7, 6, 5, 4, 3, 2, 1)

	points, err := RSI(bars, 4)
	suite.NoError(err)
	suite.NotEmpty(points)

	for _, p := range points {
		suite.InDelta(0.0, p.Value, 1e-9)
	}
}

func (suite *RSITestSuite) TestWilderSmoothingSeed() {
	// Changes: +2, -1, +3, -2. Seed over period 4: avgGain=1.25, avgLoss=0.75.
	bars := barsFromCloses(10, 12, 11, 14, 12)

	points, err := RSI(bars, 4)
	suite.NoError(err)
	suite.Len(points, 1)

	rs := 1.25 / 0.75
	want := 100 - 100/(1+rs)
	suite.InDelta(want, points[0].Value, 1e-12)
}

func (suite *RSITestSuite) TestBoundedForRandomWalks() {
	bars := mocks.GenerateBars(200)

	points, err := RSI(bars, 14)
	suite.NoError(err)
	suite.Len(points, len(bars)-14)

	for _, p := range points {
		suite.GreaterOrEqual(p.Value, 0.0)
		suite.LessOrEqual(p.Value, 100.0)
	}
}
