package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/moznion/go-optional"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/nsbm60/marketdata-ui-sub001/internal/chart"
	"github.com/nsbm60/marketdata-ui-sub001/internal/config"
	"github.com/nsbm60/marketdata-ui-sub001/internal/indicator"
	"github.com/nsbm60/marketdata-ui-sub001/internal/logger"
	"github.com/nsbm60/marketdata-ui-sub001/internal/pricebus"
	"github.com/nsbm60/marketdata-ui-sub001/internal/scheduler"
	"github.com/nsbm60/marketdata-ui-sub001/internal/transport"
	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
	"github.com/nsbm60/marketdata-ui-sub001/internal/wire"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// dispatcher fans inbound envelopes out to every registered consumer.
// Handlers are registered after the gateway is dialed, since the price bus
// needs the gateway as its frame sender.
type dispatcher struct {
	mu       sync.RWMutex
	handlers []transport.EnvelopeHandler
}

func (d *dispatcher) add(handler transport.EnvelopeHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers = append(d.handlers, handler)
}

func (d *dispatcher) dispatch(envelope wire.Envelope) {
	d.mu.RLock()
	handlers := d.handlers
	d.mu.RUnlock()

	for _, handler := range handlers {
		handler(envelope)
	}
}

// chartAction wires the service together and runs until interrupted.
func chartAction(ctx context.Context, cmd *cli.Command) error {
	symbol := cmd.String("symbol")
	timeframe := cmd.String("timeframe")

	cfg := config.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	if gateway := cmd.String("gateway"); gateway != "" {
		cfg.Gateway = gateway
	}

	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := &dispatcher{}

	gateway, err := transport.Dial(ctx, cfg.Gateway, d.dispatch, log)
	if err != nil {
		return err
	}
	defer gateway.Close()

	gateway.SetRequestTimeout(cfg.RequestTimeout)

	client := transport.NewClient(gateway)
	bus := pricebus.New(gateway, log)
	assembler := chart.NewAssembler(client, log)
	defer assembler.Close()

	d.add(bus.HandleEnvelope)
	d.add(assembler.HandleEnvelope)

	settings := cfg.Indicators.Settings()
	warmup := indicator.WarmupBars(settings)

	var atrPeriod optional.Option[int]
	if cfg.Indicators.ATRPeriod > 0 {
		atrPeriod = optional.Some(cfg.Indicators.ATRPeriod)
	}

	if err := assembler.Fetch(ctx, chart.Params{
		Symbol:          symbol,
		Timeframe:       timeframe,
		Session:         types.Session(cfg.Session),
		VisibleBarCount: cfg.VisibleBarCount,
		WarmupBarCount:  warmup,
		ATRPeriod:       atrPeriod,
	}); err != nil {
		return err
	}

	loader := chart.NewLoader(assembler, cfg.VisibleBarCount, warmup, log)
	if err := loader.EstablishWindow(ctx); err != nil {
		if !errors.IsInsufficientDataError(err) {
			return err
		}

		// Indicator lines over the early bars will be shorter than
		// configured; the chart is still usable.
		log.Warn("Indicator warm-up not fully covered by available history",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}

	start, end := loader.VisibleRange()
	log.Info("Chart window established",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("warmupBars", warmup),
		zap.Int("visibleStart", start),
		zap.Int("visibleEnd", end),
	)

	// Throttled price consumer: ticks merge into a one-slot buffer, the
	// shared flush drains it alongside every other consumer at the same
	// interval.
	var pending struct {
		sync.Mutex
		data  types.PriceData
		dirty bool
	}

	subHandle, err := bus.Subscribe(symbol, types.ChannelEquity, func(data types.PriceData) {
		pending.Lock()
		pending.data = data
		pending.dirty = true
		pending.Unlock()
	})
	if err != nil {
		return err
	}
	defer subHandle.Unsubscribe()

	sched := scheduler.New(log)
	defer sched.Close()

	flushHandle, err := sched.Register(cfg.ThrottleInterval, func() {
		pending.Lock()
		data, dirty := pending.data, pending.dirty
		pending.dirty = false
		pending.Unlock()

		if !dirty {
			return
		}

		snapshot := assembler.Snapshot()
		logWindowUpdate(log, symbol, data, snapshot, settings)
	})
	if err != nil {
		return err
	}
	defer flushHandle.Unregister()

	log.Info("Streaming", zap.String("symbol", symbol), zap.Duration("throttle", cfg.ThrottleInterval))

	<-ctx.Done()

	log.Info("Shutting down")

	return nil
}

// logWindowUpdate recomputes the indicator series over the committed window
// and logs the latest values.
func logWindowUpdate(log *logger.Logger, symbol string, data types.PriceData, snapshot chart.Snapshot, settings []indicator.Setting) {
	fields := []zap.Field{
		zap.String("symbol", symbol),
		zap.Float64("last", data.Last),
		zap.Int("bars", len(snapshot.Bars)),
	}

	if snapshot.LiveBar != nil {
		fields = append(fields, zap.Float64("liveClose", snapshot.LiveBar.Close))
	}

	for _, setting := range settings {
		if !setting.Enabled {
			continue
		}

		switch setting.Kind {
		case indicator.KindMA:
			if series, err := indicator.SMA(snapshot.Bars, setting.Period); err == nil && len(series) > 0 {
				fields = append(fields, zap.Float64("sma", series[len(series)-1].Value))
			}
		case indicator.KindRSI:
			if series, err := indicator.RSI(snapshot.Bars, setting.Period); err == nil && len(series) > 0 {
				fields = append(fields, zap.Float64("rsi", series[len(series)-1].Value))
			}
		case indicator.KindMACD:
			if series, err := indicator.MACD(snapshot.Bars, setting.Fast, setting.Slow, setting.Signal); err == nil && len(series.Histogram) > 0 {
				fields = append(fields, zap.Float64("macdHistogram", series.Histogram[len(series.Histogram)-1].Value))
			}
		default:
		}
	}

	if snapshot.ATR != nil {
		fields = append(fields, zap.Float64("atr", *snapshot.ATR))
	}

	log.Info("Window update", fields...)
}

func main() {
	cmd := &cli.Command{
		Name:  "chartd",
		Usage: "Stream a live chart window with indicators from the market-data gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"s"},
				Usage:    "Ticker symbol to chart",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "timeframe",
				Aliases: []string{"t"},
				Usage:   "Bar timeframe (e.g. 1m, 5m, 1d)",
				Value:   "5m",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "Gateway websocket URL (overrides config)",
			},
		},
		Action: chartAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "chartd: %v\n", err)
		os.Exit(1)
	}
}
