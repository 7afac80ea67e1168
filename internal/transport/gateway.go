// Package transport owns the websocket connection to the market-data
// gateway: request/response correlation on the control channel, outbound
// subscription frames, and fan-in of streamed envelopes to a single handler.
package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nsbm60/marketdata-ui-sub001/internal/logger"
	"github.com/nsbm60/marketdata-ui-sub001/internal/wire"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// DefaultRequestTimeout bounds a control-channel round-trip when the caller's
// context carries no deadline of its own.
const DefaultRequestTimeout = 15 * time.Second

// EnvelopeHandler receives every inbound streamed envelope, in connection
// order, on the reader goroutine.
type EnvelopeHandler func(envelope wire.Envelope)

// Gateway is the control and streaming surface of the market-data gateway.
type Gateway interface {
	// Request issues a correlated request and blocks for its response.
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
	// Notify issues a fire-and-forget request with no response.
	Notify(method string, params any) error
	// Send emits a subscription frame on the market-data channel.
	Send(frame wire.SubscriptionFrame) error
}

// rpcRequest is one outbound control-channel message. Notifications omit ID.
type rpcRequest struct {
	ID     string `json:"id,omitempty"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// inboundMessage probes an inbound frame: responses carry an ID, streamed
// envelopes carry a topic.
type inboundMessage struct {
	ID     string          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
	Topic  string          `json:"topic,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type pendingResult struct {
	result json.RawMessage
	err    error
}

// WSGateway is the websocket implementation of Gateway. A single reader
// goroutine routes inbound frames; writes are serialized by a mutex.
type WSGateway struct {
	conn    *websocket.Conn
	handler EnvelopeHandler
	log     *logger.Logger

	requestTimeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan pendingResult
	closed  bool
}

// Dial connects to the gateway at url and starts the reader. The handler
// receives every streamed envelope until Close.
func Dial(ctx context.Context, url string, handler EnvelopeHandler, log *logger.Logger) (*WSGateway, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeConnectionClosed, err, "failed to dial gateway at %s", url)
	}

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	gateway := &WSGateway{
		conn:           conn,
		handler:        handler,
		log:            log,
		requestTimeout: DefaultRequestTimeout,
		pending:        make(map[string]chan pendingResult),
	}

	go gateway.readLoop()

	log.Info("Connected to market-data gateway", zap.String("url", url))

	return gateway, nil
}

// SetRequestTimeout overrides the default round-trip timeout. Call before
// issuing requests.
func (g *WSGateway) SetRequestTimeout(timeout time.Duration) {
	if timeout > 0 {
		g.requestTimeout = timeout
	}
}

// Request issues a correlated control-channel request and blocks until the
// response arrives, the context is done, or the timeout elapses.
func (g *WSGateway) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.requestTimeout)
		defer cancel()
	}

	id := uuid.New().String()
	resultCh := make(chan pendingResult, 1)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()

		return nil, errors.New(errors.ErrCodeConnectionClosed, "gateway connection is closed")
	}
	g.pending[id] = resultCh
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
	}()

	if err := g.writeJSON(rpcRequest{ID: id, Method: method, Params: params}); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to send %s request", method)
	}

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Newf(errors.ErrCodeRequestTimeout, "%s request timed out", method)
		}

		return nil, errors.Wrapf(errors.ErrCodeRequestTimeout, ctx.Err(), "%s request canceled", method)
	case res := <-resultCh:
		return res.result, res.err
	}
}

// Notify issues a fire-and-forget request. No response is expected.
func (g *WSGateway) Notify(method string, params any) error {
	if err := g.writeJSON(rpcRequest{Method: method, Params: params}); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to send %s notification", method)
	}

	return nil
}

// Send emits a subscription frame.
func (g *WSGateway) Send(frame wire.SubscriptionFrame) error {
	if err := g.writeJSON(frame); err != nil {
		return errors.Wrap(errors.ErrCodeFrameSendFailed, "failed to send subscription frame", err)
	}

	return nil
}

// Close tears the connection down and fails every in-flight request.
func (g *WSGateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()

		return nil
	}
	g.closed = true
	g.mu.Unlock()

	return g.conn.Close()
}

func (g *WSGateway) writeJSON(v any) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	return g.conn.WriteJSON(v)
}

// readLoop routes inbound frames until the connection dies: frames with an
// id resolve pending requests, frames with a topic go to the envelope
// handler, anything else is dropped.
func (g *WSGateway) readLoop() {
	for {
		_, raw, err := g.conn.ReadMessage()
		if err != nil {
			g.failPending(errors.Wrap(errors.ErrCodeConnectionClosed, "gateway connection lost", err))

			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			g.log.Warn("Dropped undecodable gateway frame", zap.Error(err))

			continue
		}

		switch {
		case msg.ID != "":
			g.resolve(msg)
		case msg.Topic != "":
			if g.handler != nil {
				g.handler(wire.Envelope{Topic: msg.Topic, Data: msg.Data})
			}
		default:
			g.log.Debug("Dropped gateway frame with neither id nor topic")
		}
	}
}

func (g *WSGateway) resolve(msg inboundMessage) {
	g.mu.Lock()
	resultCh, ok := g.pending[msg.ID]
	if ok {
		delete(g.pending, msg.ID)
	}
	g.mu.Unlock()

	if !ok {
		// Pending entry already removed: the request timed out or was
		// canceled before the response landed.
		g.log.Debug("Dropped response for unknown request id", zap.String("id", msg.ID))

		return
	}

	if msg.Error != nil {
		resultCh <- pendingResult{err: errors.Newf(errors.ErrCodeRemoteError, "gateway error %d: %s", msg.Error.Code, msg.Error.Message)}

		return
	}

	resultCh <- pendingResult{result: msg.Result}
}

// failPending resolves every in-flight request with err and marks the
// gateway closed.
func (g *WSGateway) failPending(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true

	for id, resultCh := range g.pending {
		resultCh <- pendingResult{err: err}
		delete(g.pending, id)
	}
}
