package chart

import (
	"context"
	"strings"
	"sync"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/nsbm60/marketdata-ui-sub001/internal/logger"
	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
	"github.com/nsbm60/marketdata-ui-sub001/internal/wire"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// State is the assembler's loading state for the active
// (symbol, timeframe, session) identity.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateLoadingMore
	StateRefreshing
	StateError
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateLoadingMore:
		return "loadingMore"
	case StateRefreshing:
		return "refreshing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ChartClient is the control-channel surface the assembler needs.
type ChartClient interface {
	GetChartData(ctx context.Context, req wire.ChartDataRequest) (wire.ChartDataResponse, error)
	StopCandleReport(symbol, timeframe string) error
}

// Params identifies one chart window and its sizing.
type Params struct {
	Symbol          string
	Timeframe       string
	Session         types.Session
	VisibleBarCount int
	WarmupBarCount  int
	ATRPeriod       optional.Option[int]
}

// Snapshot is a read-only copy of the assembler's current window.
type Snapshot struct {
	State   State
	Bars    []types.Bar
	LiveBar *types.Bar
	HasMore bool
	ATR     *float64
	Err     error
}

// Assembler owns the bar series for one active (symbol, timeframe, session)
// identity at a time. Every in-flight request is tagged with a generation;
// a response arriving after the identity changed is discarded rather than
// canceled at the network level.
type Assembler struct {
	client ChartClient
	log    *logger.Logger

	mu         sync.Mutex
	state      State
	lastErr    error
	generation int

	params Params

	bars              []types.Bar
	liveBar           *types.Bar
	hasMore           bool
	aggregateMultiple int

	subActive   bool
	reportTopic string

	atr            *float64
	atrReportTopic string

	onUpdate func()
}

// NewAssembler creates an idle assembler issuing requests through client.
func NewAssembler(client ChartClient, log *logger.Logger) *Assembler {
	return &Assembler{
		client: client,
		log:    log,
		state:  StateIdle,
	}
}

// SetOnUpdate registers a callback invoked after every accepted mutation of
// the window. Set before the first Fetch.
func (a *Assembler) SetOnUpdate(callback func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.onUpdate = callback
}

// Snapshot returns a copy of the current window. The bar slice is owned by
// the caller.
func (a *Assembler) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.snapshotLocked()
}

func (a *Assembler) snapshotLocked() Snapshot {
	bars := make([]types.Bar, len(a.bars))
	copy(bars, a.bars)

	var liveBar *types.Bar
	if a.liveBar != nil {
		copied := *a.liveBar
		liveBar = &copied
	}

	var atr *float64
	if a.atr != nil {
		copied := *a.atr
		atr = &copied
	}

	return Snapshot{
		State:   a.state,
		Bars:    bars,
		LiveBar: liveBar,
		HasMore: a.hasMore,
		ATR:     atr,
		Err:     a.lastErr,
	}
}

// Fetch loads the initial window for a new identity, replacing the active
// one. The request asks for visible plus warmup bars; the live-update
// subscription established by the response replaces any prior one.
func (a *Assembler) Fetch(ctx context.Context, params Params) error {
	params.Symbol = types.NormalizeSymbol(params.Symbol)

	if params.Symbol == "" {
		return errors.New(errors.ErrCodeInvalidSymbol, "symbol is required")
	}

	if params.Timeframe == "" {
		return errors.New(errors.ErrCodeInvalidTimeframe, "timeframe is required")
	}

	a.mu.Lock()

	a.stopReportLocked()

	a.generation++
	generation := a.generation
	a.params = params
	a.state = StateLoading
	a.lastErr = nil
	a.mu.Unlock()

	resp, err := a.client.GetChartData(ctx, wire.ChartDataRequest{
		Symbol:    params.Symbol,
		Timeframe: params.Timeframe,
		BarCount:  params.VisibleBarCount + params.WarmupBarCount,
		Session:   params.Session,
		ATRPeriod: params.ATRPeriod,
	})

	a.mu.Lock()
	defer a.mu.Unlock()

	if generation != a.generation {
		// A newer Fetch or Close superseded this request.
		return nil
	}

	if err != nil {
		a.state = StateError
		a.lastErr = err

		return errors.Wrapf(errors.ErrCodeFetchFailed, err, "chart fetch failed for %s %s", params.Symbol, params.Timeframe)
	}

	a.applyFetchResponseLocked(resp)
	a.notifyLocked()

	return nil
}

// LoadMore pages one more window of history backwards, with an exclusive
// upper bound at the current oldest bar. It returns the number of bars
// prepended.
func (a *Assembler) LoadMore(ctx context.Context) (int, error) {
	a.mu.Lock()

	if a.state == StateLoading || a.state == StateLoadingMore || a.state == StateRefreshing {
		a.mu.Unlock()

		return 0, errors.New(errors.ErrCodeLoadInProgress, "a load is already in progress")
	}

	if a.state != StateReady {
		a.mu.Unlock()

		return 0, errors.Newf(errors.ErrCodeNotReady, "cannot load more in state %s", a.state)
	}

	if !a.hasMore {
		a.mu.Unlock()

		return 0, errors.New(errors.ErrCodeNoMoreHistory, "no more history available")
	}

	if len(a.bars) == 0 {
		a.mu.Unlock()

		return 0, errors.New(errors.ErrCodeNoBarsLoaded, "no bars loaded to page from")
	}

	generation := a.generation
	params := a.params
	endBefore := a.bars[0].Time.UnixMilli()
	a.state = StateLoadingMore
	a.mu.Unlock()

	resp, err := a.client.GetChartData(ctx, wire.ChartDataRequest{
		Symbol:    params.Symbol,
		Timeframe: params.Timeframe,
		BarCount:  params.VisibleBarCount + params.WarmupBarCount,
		Session:   params.Session,
		ATRPeriod: params.ATRPeriod,
		EndBefore: optional.Some(endBefore),
	})

	a.mu.Lock()
	defer a.mu.Unlock()

	if generation != a.generation {
		return 0, nil
	}

	if err != nil {
		// hasMore stays as it was and the series is untouched.
		a.state = StateReady
		a.log.Warn("Pagination request failed",
			zap.String("symbol", params.Symbol),
			zap.String("timeframe", params.Timeframe),
			zap.Error(err),
		)

		return 0, errors.Wrap(errors.ErrCodeFetchFailed, "pagination request failed", err)
	}

	batch := a.aggregated(resp)
	prepended := a.prependLocked(batch)
	a.hasMore = resp.HasMore
	a.state = StateReady
	a.notifyLocked()

	return prepended, nil
}

// Refresh re-issues the initial fetch from scratch, discarding accumulated
// pagination. Used to recover from staleness after a long hidden period or
// a trading-day boundary.
func (a *Assembler) Refresh(ctx context.Context) error {
	a.mu.Lock()

	if a.state != StateReady {
		a.mu.Unlock()

		return errors.Newf(errors.ErrCodeNotReady, "cannot refresh in state %s", a.state)
	}

	generation := a.generation
	params := a.params
	a.state = StateRefreshing
	a.mu.Unlock()

	resp, err := a.client.GetChartData(ctx, wire.ChartDataRequest{
		Symbol:    params.Symbol,
		Timeframe: params.Timeframe,
		BarCount:  params.VisibleBarCount + params.WarmupBarCount,
		Session:   params.Session,
		ATRPeriod: params.ATRPeriod,
	})

	a.mu.Lock()
	defer a.mu.Unlock()

	if generation != a.generation {
		return nil
	}

	if err != nil {
		a.state = StateError
		a.lastErr = err

		return errors.Wrap(errors.ErrCodeFetchFailed, "chart refresh failed", err)
	}

	a.applyFetchResponseLocked(resp)
	a.notifyLocked()

	return nil
}

// HandleEnvelope ingests one inbound envelope. Candle and ATR updates whose
// identity does not match the active subscription are discarded, guarding
// against cross-talk from a previous subscription still in flight during a
// rapid symbol switch.
func (a *Assembler) HandleEnvelope(envelope wire.Envelope) {
	topic := wire.ParseTopic(envelope.Topic)

	switch topic.Kind {
	case wire.TopicCandle:
		a.handleCandle(topic, envelope)
	case wire.TopicATR:
		a.handleATR(topic, envelope)
	default:
	}
}

// Close tears the assembler down. The stop notification is sent only if a
// live subscription was actually established for the active identity.
func (a *Assembler) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopReportLocked()

	a.generation++
	a.state = StateIdle
	a.bars = nil
	a.liveBar = nil
	a.atr = nil
	a.hasMore = false
	a.lastErr = nil
}

// applyFetchResponseLocked replaces the window wholesale from an initial or
// refresh response.
func (a *Assembler) applyFetchResponseLocked(resp wire.ChartDataResponse) {
	a.bars = a.aggregated(resp)
	a.liveBar = nil
	a.hasMore = resp.HasMore
	a.aggregateMultiple = resp.AggregateMultiple

	a.reportTopic = resp.ReportTopic
	a.subActive = resp.ReportTopic != ""

	a.atrReportTopic = resp.ATRReportTopic
	a.atr = resp.ATR

	a.state = StateReady
}

// aggregated converts the raw payload bars, applying client-side
// aggregation when the backend's native granularity does not cover the
// requested timeframe.
func (a *Assembler) aggregated(resp wire.ChartDataResponse) []types.Bar {
	bars := make([]types.Bar, len(resp.Bars))
	for i, payload := range resp.Bars {
		bars[i] = payload.Bar()
	}

	return AggregateBars(bars, resp.AggregateMultiple)
}

// prependLocked merges an older batch in front of the series, dropping any
// incoming bar whose timestamp is already present or not strictly older
// than the current start. Existing bars always win.
func (a *Assembler) prependLocked(batch []types.Bar) int {
	if len(batch) == 0 {
		return 0
	}

	filtered := batch
	if len(a.bars) > 0 {
		oldest := a.bars[0].Time
		filtered = make([]types.Bar, 0, len(batch))

		for _, bar := range batch {
			if bar.Time.Before(oldest) {
				filtered = append(filtered, bar)
			}
		}
	}

	if len(filtered) == 0 {
		return 0
	}

	merged := make([]types.Bar, 0, len(filtered)+len(a.bars))
	merged = append(merged, filtered...)
	merged = append(merged, a.bars...)
	a.bars = merged

	return len(filtered)
}

// matchesLocked reports whether an update's identity matches the active
// subscription, case-insensitively.
func (a *Assembler) matchesLocked(topic wire.Topic) bool {
	return a.subActive &&
		strings.EqualFold(topic.Symbol, a.params.Symbol) &&
		strings.EqualFold(topic.Timeframe, a.params.Timeframe)
}

func (a *Assembler) handleCandle(topic wire.Topic, envelope wire.Envelope) {
	update, err := wire.DecodeCandleUpdate(envelope.Data)
	if err != nil {
		a.log.Warn("Dropped malformed candle update",
			zap.String("topic", envelope.Topic),
			zap.Error(err),
		)

		return
	}

	if update.Kind == wire.CandleUpdateEmpty {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.matchesLocked(topic) {
		return
	}

	bar := update.Bar()

	// A timestamp strictly older than the last committed bar is a late
	// out-of-order message and is dropped.
	if len(a.bars) > 0 && bar.Time.Before(a.bars[len(a.bars)-1].Time) {
		a.log.Debug("Dropped out-of-order candle update",
			zap.String("symbol", topic.Symbol),
			zap.Time("updateTime", bar.Time),
			zap.Time("lastCommitted", a.bars[len(a.bars)-1].Time),
		)

		return
	}

	switch update.Kind {
	case wire.CandleUpdateLive:
		if len(a.bars) > 0 && bar.Time.Equal(a.bars[len(a.bars)-1].Time) {
			// The last committed bar is still forming: replace it in
			// place instead of growing the series.
			a.bars[len(a.bars)-1] = bar
			a.liveBar = nil
		} else {
			a.liveBar = &bar
		}
	case wire.CandleUpdateCompleted:
		if len(a.bars) > 0 && bar.Time.Equal(a.bars[len(a.bars)-1].Time) {
			a.bars[len(a.bars)-1] = bar
		} else {
			a.bars = append(a.bars, bar)
		}
		a.liveBar = nil
	default:
	}

	a.notifyLocked()
}

func (a *Assembler) handleATR(topic wire.Topic, envelope wire.Envelope) {
	update, err := wire.DecodeATRUpdate(envelope.Data)
	if err != nil {
		a.log.Warn("Dropped malformed ATR update",
			zap.String("topic", envelope.Topic),
			zap.Error(err),
		)

		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.atrReportTopic == "" || !a.matchesLocked(topic) {
		return
	}

	a.atr = &update.Value
	a.notifyLocked()
}

// stopReportLocked sends the fire-and-forget stop notification for the
// active live subscription, if one was established.
func (a *Assembler) stopReportLocked() {
	if !a.subActive {
		return
	}

	if err := a.client.StopCandleReport(a.params.Symbol, a.params.Timeframe); err != nil {
		a.log.Warn("Failed to stop candle report",
			zap.String("symbol", a.params.Symbol),
			zap.String("timeframe", a.params.Timeframe),
			zap.Error(err),
		)
	}

	a.subActive = false
	a.reportTopic = ""
	a.atrReportTopic = ""
}

func (a *Assembler) notifyLocked() {
	if a.onUpdate != nil {
		a.onUpdate()
	}
}
