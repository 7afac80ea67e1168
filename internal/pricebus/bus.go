// Package pricebus fans inbound price ticks out to many independently
// lifecycled consumers while holding exactly one network subscription per
// (symbol, channel), reference counted across all of them.
package pricebus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/nsbm60/marketdata-ui-sub001/internal/logger"
	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
	"github.com/nsbm60/marketdata-ui-sub001/internal/wire"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// FrameSender emits subscribe/unsubscribe frames on the market-data channel.
type FrameSender interface {
	Send(frame wire.SubscriptionFrame) error
}

// PriceCallback receives the merged price state after every accepted update
// for the subscribed (symbol, channel).
type PriceCallback func(data types.PriceData)

// ChannelCallback receives every accepted update for any symbol on a channel.
type ChannelCallback func(symbol string, data types.PriceData)

// key identifies one price stream. The same symbol string on different
// channels is two independent streams.
type key struct {
	Symbol  string
	Channel types.Channel
}

// Bus is the subscription registry and last-known price cache. The cache
// persists across subscribe/unsubscribe cycles: unsubscribing stops updates
// but never evicts the cached value.
type Bus struct {
	mu     sync.Mutex
	sender FrameSender
	log    *logger.Logger

	nextID      int
	subscribers map[key]map[int]PriceCallback
	channelSubs map[types.Channel]map[int]ChannelCallback
	prices      map[key]types.PriceData
}

// New creates an empty Bus emitting subscription frames through sender.
func New(sender FrameSender, log *logger.Logger) *Bus {
	return &Bus{
		sender:      sender,
		log:         log,
		subscribers: make(map[key]map[int]PriceCallback),
		channelSubs: make(map[types.Channel]map[int]ChannelCallback),
		prices:      make(map[key]types.PriceData),
	}
}

// Subscribe registers a callback for one (symbol, channel). The first
// subscriber for a key opens the network subscription; further subscribers
// share it. The returned handle is idempotent.
func (b *Bus) Subscribe(symbol string, channel types.Channel, callback PriceCallback) (*Handle, error) {
	if !channel.IsValid() {
		return nil, errors.Newf(errors.ErrCodeInvalidChannel, "unknown channel %q", channel)
	}

	symbol = types.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidSymbol, "symbol is required")
	}

	if callback == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "callback is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{Symbol: symbol, Channel: channel}

	if len(b.subscribers[k]) == 0 {
		frame := wire.NewSubscriptionFrame(wire.FrameSubscribe, channel, symbol)
		if err := b.sender.Send(frame); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeSubscribeFailed, err, "failed to open subscription for %s.%s", channel, symbol)
		}

		b.log.Debug("Opened network subscription",
			zap.String("symbol", symbol),
			zap.String("channel", string(channel)),
		)
	}

	b.nextID++
	id := b.nextID

	if b.subscribers[k] == nil {
		b.subscribers[k] = make(map[int]PriceCallback)
	}
	b.subscribers[k][id] = callback

	return &Handle{unsubscribe: func() { b.unsubscribe(k, id) }}, nil
}

// OnChannelUpdate registers a broadcast listener fired on every accepted
// update for any symbol on the channel. Useful when the backend manages the
// subscription scope itself, such as a full option chain.
func (b *Bus) OnChannelUpdate(channel types.Channel, callback ChannelCallback) (*Handle, error) {
	if !channel.IsValid() {
		return nil, errors.Newf(errors.ErrCodeInvalidChannel, "unknown channel %q", channel)
	}

	if callback == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "callback is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	if b.channelSubs[channel] == nil {
		b.channelSubs[channel] = make(map[int]ChannelCallback)
	}
	b.channelSubs[channel][id] = callback

	return &Handle{unsubscribe: func() { b.removeChannelListener(channel, id) }}, nil
}

// GetPrice returns the cached price state for one (symbol, channel). The
// read is independent of subscription state.
func (b *Bus) GetPrice(symbol string, channel types.Channel) (types.PriceData, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.prices[key{Symbol: types.NormalizeSymbol(symbol), Channel: channel}]

	return data, ok
}

// GetPricesForChannel returns a snapshot of every cached value on a channel.
func (b *Bus) GetPricesForChannel(channel types.Channel) map[string]types.PriceData {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := make(map[string]types.PriceData)
	for k, data := range b.prices {
		if k.Channel == channel {
			snapshot[k.Symbol] = data
		}
	}

	return snapshot
}

// HandleEnvelope ingests one inbound envelope. Non-tick and unrecognized
// topics are ignored; malformed payloads are dropped and logged, never
// propagated.
func (b *Bus) HandleEnvelope(envelope wire.Envelope) {
	topic := wire.ParseTopic(envelope.Topic)
	if topic.Kind != wire.TopicTick {
		return
	}

	payload, err := wire.DecodeTick(envelope.Data)
	if err != nil {
		b.log.Warn("Dropped malformed tick envelope",
			zap.String("topic", envelope.Topic),
			zap.Error(err),
		)

		return
	}

	b.mu.Lock()

	k := key{Symbol: topic.Symbol, Channel: topic.Channel}
	data := b.prices[k]

	// Merge field by field. A quote tick never clears last, a trade tick
	// never clears bid/ask.
	switch topic.Tick {
	case wire.TickQuote:
		if payload.Bid != nil {
			data.Bid = *payload.Bid
			data.HasBid = true
		}
		if payload.Ask != nil {
			data.Ask = *payload.Ask
			data.HasAsk = true
		}
	case wire.TickTrade:
		if payload.Last != nil {
			data.Last = *payload.Last
			data.HasLast = true
		}
	}
	data.Time = payload.Time()

	b.prices[k] = data

	callbacks := make([]PriceCallback, 0, len(b.subscribers[k]))
	for _, callback := range b.subscribers[k] {
		callbacks = append(callbacks, callback)
	}

	listeners := make([]ChannelCallback, 0, len(b.channelSubs[topic.Channel]))
	for _, listener := range b.channelSubs[topic.Channel] {
		listeners = append(listeners, listener)
	}

	b.mu.Unlock()

	// Exact-match subscribers first, then channel-wide listeners.
	for _, callback := range callbacks {
		callback(data)
	}

	for _, listener := range listeners {
		listener(topic.Symbol, data)
	}
}

// unsubscribe drops one subscriber; the last one for a key closes the
// network subscription. The cached price survives.
func (b *Bus) unsubscribe(k key, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[k]
	if !ok {
		return
	}

	delete(subs, id)

	if len(subs) > 0 {
		return
	}

	delete(b.subscribers, k)

	frame := wire.NewSubscriptionFrame(wire.FrameUnsubscribe, k.Channel, k.Symbol)
	if err := b.sender.Send(frame); err != nil {
		b.log.Warn("Failed to close network subscription",
			zap.String("symbol", k.Symbol),
			zap.String("channel", string(k.Channel)),
			zap.Error(errors.Wrap(errors.ErrCodeUnsubscribeFailed, "unsubscribe frame rejected", err)),
		)

		return
	}

	b.log.Debug("Closed network subscription",
		zap.String("symbol", k.Symbol),
		zap.String("channel", string(k.Channel)),
	)
}

func (b *Bus) removeChannelListener(channel types.Channel, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.channelSubs[channel], id)
}

// Handle detaches one subscriber or channel listener. Repeat calls are no-ops.
type Handle struct {
	unsubscribe func()
	once        sync.Once
}

// Unsubscribe detaches the callback. Repeat calls are no-ops.
func (h *Handle) Unsubscribe() {
	h.once.Do(h.unsubscribe)
}
