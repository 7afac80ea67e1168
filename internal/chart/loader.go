package chart

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nsbm60/marketdata-ui-sub001/internal/logger"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// windowSource is the assembler surface the loader paginates against.
type windowSource interface {
	Snapshot() Snapshot
	LoadMore(ctx context.Context) (int, error)
}

// Loader decides when to auto-paginate based on scroll position and
// indicator warm-up needs, and keeps the visible window stable across
// prepends.
type Loader struct {
	source windowSource
	log    *logger.Logger

	mu              sync.Mutex
	visibleBarCount int
	warmupBars      int

	start       int
	established bool
}

// NewLoader creates a loader over one assembler's window.
func NewLoader(source windowSource, visibleBarCount, warmupBars int, log *logger.Logger) *Loader {
	return &Loader{
		source:          source,
		log:             log,
		visibleBarCount: visibleBarCount,
		warmupBars:      warmupBars,
	}
}

// ScrollThreshold is the distance from the loaded-data start at which a
// scroll triggers pagination. It scales with warm-up so indicator lines
// never appear invalid while scrolling.
func (l *Loader) ScrollThreshold() int {
	if l.warmupBars+20 > 20 {
		return l.warmupBars + 20
	}

	return 20
}

// EstablishWindow paginates until warm-up is satisfied or history runs out,
// then anchors the visible window at the most recent bars. Call after the
// initial fetch succeeds. When history runs out before warm-up is covered
// the window is still established and the shortfall is reported as an
// InsufficientDataError, which callers may treat as advisory.
func (l *Loader) EstablishWindow(ctx context.Context) error {
	for {
		snapshot := l.source.Snapshot()

		if len(snapshot.Bars) >= l.warmupBars || !snapshot.HasMore {
			break
		}

		prepended, err := l.source.LoadMore(ctx)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeNoMoreHistory) {
				break
			}

			return err
		}

		// An empty page cannot make progress: the next request would carry
		// the same exclusive bound, so stop even if the backend still
		// claims more history.
		if prepended == 0 {
			break
		}
	}

	snapshot := l.source.Snapshot()

	l.mu.Lock()
	l.start = len(snapshot.Bars) - l.visibleBarCount
	if l.start < 0 {
		l.start = 0
	}
	l.established = true
	l.mu.Unlock()

	if len(snapshot.Bars) < l.warmupBars {
		return errors.NewInsufficientDataErrorf(l.warmupBars, len(snapshot.Bars), "",
			"indicator warm-up needs %d bars, history provides %d", l.warmupBars, len(snapshot.Bars))
	}

	return nil
}

// HandleScroll moves the visible window's left edge. When the edge comes
// within the scroll threshold of the loaded-data start and more history is
// available and nothing is loading, it paginates and shifts the window
// right by the prepended count so on-screen content does not jump.
func (l *Loader) HandleScroll(ctx context.Context, newStart int) {
	snapshot := l.source.Snapshot()

	l.mu.Lock()

	if !l.established {
		l.mu.Unlock()

		return
	}

	if newStart < 0 {
		newStart = 0
	}
	if maxStart := len(snapshot.Bars) - 1; newStart > maxStart && maxStart >= 0 {
		newStart = maxStart
	}
	l.start = newStart

	shouldLoad := newStart < l.ScrollThreshold() &&
		snapshot.HasMore &&
		snapshot.State == StateReady
	l.mu.Unlock()

	if !shouldLoad {
		return
	}

	prepended, err := l.source.LoadMore(ctx)
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeLoadInProgress) {
			l.log.Warn("Scroll-triggered pagination failed", zap.Error(err))
		}

		return
	}

	l.mu.Lock()
	l.start += prepended
	l.mu.Unlock()
}

// VisibleRange returns the [start, end) bar index range of the visible
// window within the loaded series.
func (l *Loader) VisibleRange() (int, int) {
	snapshot := l.source.Snapshot()

	l.mu.Lock()
	defer l.mu.Unlock()

	end := l.start + l.visibleBarCount
	if end > len(snapshot.Bars) {
		end = len(snapshot.Bars)
	}

	return l.start, end
}
