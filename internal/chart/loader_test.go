package chart

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsbm60/marketdata-ui-sub001/internal/logger"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// fakeSource is a scriptable assembler window for loader tests.
type fakeSource struct {
	snapshot      Snapshot
	loadMoreCalls int
	loadMore      func() (int, error)
}

func (s *fakeSource) Snapshot() Snapshot {
	return s.snapshot
}

func (s *fakeSource) LoadMore(context.Context) (int, error) {
	s.loadMoreCalls++

	if s.loadMore == nil {
		return 0, errors.New(errors.ErrCodeNoMoreHistory, "no more history available")
	}

	return s.loadMore()
}

func readySource(barCount int, hasMore bool) *fakeSource {
	return &fakeSource{
		snapshot: Snapshot{
			State:   StateReady,
			Bars:    makeBars(barCount),
			HasMore: hasMore,
		},
	}
}

func TestScrollThreshold(t *testing.T) {
	log := logger.NewNopLogger()

	assert.Equal(t, 20, NewLoader(readySource(0, false), 60, 0, log).ScrollThreshold())
	assert.Equal(t, 34, NewLoader(readySource(0, false), 60, 14, log).ScrollThreshold())
	assert.Equal(t, 54, NewLoader(readySource(0, false), 60, 34, log).ScrollThreshold())
}

func TestEstablishWindowPaginatesUntilWarmupSatisfied(t *testing.T) {
	source := readySource(10, true)
	source.loadMore = func() (int, error) {
		grown := len(source.snapshot.Bars) + 10
		source.snapshot.Bars = makeBars(grown)
		source.snapshot.HasMore = grown < 100

		return 10, nil
	}

	loader := NewLoader(source, 20, 34, logger.NewNopLogger())
	require.NoError(t, loader.EstablishWindow(context.Background()))

	// 10 -> 20 -> 30 -> 40 bars: three pagination rounds.
	assert.Equal(t, 3, source.loadMoreCalls)

	start, end := loader.VisibleRange()
	assert.Equal(t, 20, start)
	assert.Equal(t, 40, end)
}

func TestEstablishWindowStopsWhenHistoryRunsOut(t *testing.T) {
	source := readySource(10, true)
	source.loadMore = func() (int, error) {
		source.snapshot.HasMore = false

		return 0, nil
	}

	loader := NewLoader(source, 20, 34, logger.NewNopLogger())
	err := loader.EstablishWindow(context.Background())

	assert.Equal(t, 1, source.loadMoreCalls)

	// The warm-up shortfall is reported with how much was needed versus
	// available.
	require.True(t, errors.IsInsufficientDataError(err))

	var shortfall *errors.InsufficientDataError
	require.ErrorAs(t, err, &shortfall)
	assert.Equal(t, 34, shortfall.Required)
	assert.Equal(t, 10, shortfall.Actual)

	// The window is established anyway. Fewer bars than the visible count:
	// it starts at zero.
	start, end := loader.VisibleRange()
	assert.Equal(t, 0, start)
	assert.Equal(t, 10, end)
}

func TestEstablishWindowStopsOnEmptyPageDespiteHasMore(t *testing.T) {
	// A backend that keeps answering with only already-loaded bars while
	// claiming more history must not keep the loop alive.
	source := readySource(10, true)
	source.loadMore = func() (int, error) {
		return 0, nil
	}

	loader := NewLoader(source, 20, 34, logger.NewNopLogger())
	err := loader.EstablishWindow(context.Background())

	assert.Equal(t, 1, source.loadMoreCalls)
	assert.True(t, errors.IsInsufficientDataError(err))

	start, end := loader.VisibleRange()
	assert.Equal(t, 0, start)
	assert.Equal(t, 10, end)
}

func TestEstablishWindowWithoutWarmupDoesNotPaginate(t *testing.T) {
	source := readySource(100, true)

	loader := NewLoader(source, 20, 34, logger.NewNopLogger())
	require.NoError(t, loader.EstablishWindow(context.Background()))

	assert.Equal(t, 0, source.loadMoreCalls)

	start, end := loader.VisibleRange()
	assert.Equal(t, 80, start)
	assert.Equal(t, 100, end)
}

func TestEstablishWindowSurfacesFetchError(t *testing.T) {
	source := readySource(10, true)
	source.loadMore = func() (int, error) {
		return 0, errors.New(errors.ErrCodeFetchFailed, "boom")
	}

	loader := NewLoader(source, 20, 34, logger.NewNopLogger())
	assert.Error(t, loader.EstablishWindow(context.Background()))
}

func TestScrollTriggersPaginationAndShiftsWindow(t *testing.T) {
	source := readySource(100, true)
	source.loadMore = func() (int, error) {
		source.snapshot.Bars = makeBars(130)

		return 30, nil
	}

	loader := NewLoader(source, 20, 0, logger.NewNopLogger())
	require.NoError(t, loader.EstablishWindow(context.Background()))

	// Left edge moves inside the threshold: pagination fires and the
	// window shifts right by the prepended count, keeping on-screen
	// content in place.
	loader.HandleScroll(context.Background(), 10)

	assert.Equal(t, 1, source.loadMoreCalls)

	start, end := loader.VisibleRange()
	assert.Equal(t, 40, start)
	assert.Equal(t, 60, end)
}

func TestScrollOutsideThresholdDoesNotPaginate(t *testing.T) {
	source := readySource(100, true)

	loader := NewLoader(source, 20, 0, logger.NewNopLogger())
	require.NoError(t, loader.EstablishWindow(context.Background()))

	loader.HandleScroll(context.Background(), 50)

	assert.Equal(t, 0, source.loadMoreCalls)

	start, _ := loader.VisibleRange()
	assert.Equal(t, 50, start)
}

func TestScrollWithoutMoreHistoryDoesNotPaginate(t *testing.T) {
	source := readySource(100, false)

	loader := NewLoader(source, 20, 0, logger.NewNopLogger())
	require.NoError(t, loader.EstablishWindow(context.Background()))

	loader.HandleScroll(context.Background(), 0)

	assert.Equal(t, 0, source.loadMoreCalls)
}

func TestScrollWhileLoadingDoesNotPaginate(t *testing.T) {
	source := readySource(100, true)
	source.snapshot.State = StateLoadingMore

	loader := NewLoader(source, 20, 0, logger.NewNopLogger())
	require.NoError(t, loader.EstablishWindow(context.Background()))

	loader.HandleScroll(context.Background(), 0)

	assert.Equal(t, 0, source.loadMoreCalls)
}

func TestScrollPaginationFailureKeepsWindow(t *testing.T) {
	source := readySource(100, true)
	source.loadMore = func() (int, error) {
		return 0, fmt.Errorf("timeout")
	}

	loader := NewLoader(source, 20, 0, logger.NewNopLogger())
	require.NoError(t, loader.EstablishWindow(context.Background()))

	loader.HandleScroll(context.Background(), 5)

	start, _ := loader.VisibleRange()
	assert.Equal(t, 5, start)
}
