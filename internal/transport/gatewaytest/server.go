// Package gatewaytest provides a scripted mock market-data gateway for
// testing. It implements the websocket control channel with per-method
// responders and supports injecting streamed envelopes.
package gatewaytest

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// RPCError is a scripted gateway-side request failure.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Responder produces the scripted result for one control-channel method.
type Responder func(params json.RawMessage) (any, *RPCError)

// Request is one recorded control-channel request or notification.
type Request struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Frame is one recorded subscription frame.
type Frame struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
	Symbols  []string `json:"symbols"`
}

// Server is a mock gateway. Methods without a responder never reply, which
// is how tests exercise request timeouts.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader

	mu         sync.Mutex
	responders map[string]Responder
	requests   []Request
	frames     []Frame

	connMu sync.Mutex
	conns  map[*websocket.Conn]*sync.Mutex
}

// NewServer creates an unstarted mock gateway.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		responders: make(map[string]Responder),
		conns:      make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Start listens on address. Empty address picks a random port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = listener

	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		_ = s.httpServer.Serve(listener)
	}()

	return nil
}

// Stop closes every connection and shuts the server down.
func (s *Server) Stop() error {
	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[*websocket.Conn]*sync.Mutex)
	s.connMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}

	return nil
}

// URL returns the websocket URL clients should dial.
func (s *Server) URL() string {
	return "ws://" + s.listener.Addr().String() + "/ws"
}

// Respond scripts the reply for a control-channel method.
func (s *Server) Respond(method string, responder Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.responders[method] = responder
}

// RespondJSON scripts a fixed successful result for a method.
func (s *Server) RespondJSON(method string, result any) {
	s.Respond(method, func(json.RawMessage) (any, *RPCError) {
		return result, nil
	})
}

// Requests returns a snapshot of every recorded request and notification.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)

	return out
}

// RequestsFor returns the recorded requests for one method.
func (s *Server) RequestsFor(method string) []Request {
	var out []Request
	for _, req := range s.Requests() {
		if req.Method == method {
			out = append(out, req)
		}
	}

	return out
}

// Frames returns a snapshot of every recorded subscription frame.
func (s *Server) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Frame, len(s.frames))
	copy(out, s.frames)

	return out
}

// InjectEnvelope streams one envelope to every connected client.
func (s *Server) InjectEnvelope(topic string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	message := map[string]any{"topic": topic, "data": json.RawMessage(payload)}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	for conn, writeMu := range s.conns {
		writeMu.Lock()
		err = conn.WriteJSON(message)
		writeMu.Unlock()

		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	writeMu := &sync.Mutex{}

	s.connMu.Lock()
	s.conns[conn] = writeMu
	s.connMu.Unlock()

	defer func() {
		s.connMu.Lock()
		delete(s.conns, conn)
		s.connMu.Unlock()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		s.dispatch(conn, writeMu, raw)
	}
}

// dispatch records one inbound message and, for correlated requests with a
// scripted responder, writes the reply.
func (s *Server) dispatch(conn *websocket.Conn, writeMu *sync.Mutex, raw []byte) {
	var probe struct {
		ID     string          `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
		Type   string          `json:"type"`
	}

	if err := json.Unmarshal(raw, &probe); err != nil {
		return
	}

	if probe.Type != "" {
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			return
		}

		s.mu.Lock()
		s.frames = append(s.frames, frame)
		s.mu.Unlock()

		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{ID: probe.ID, Method: probe.Method, Params: probe.Params})
	responder := s.responders[probe.Method]
	s.mu.Unlock()

	// Notifications get no reply. Unscripted methods hang on purpose.
	if probe.ID == "" || responder == nil {
		return
	}

	result, rpcErr := responder(probe.Params)

	reply := map[string]any{"id": probe.ID}
	if rpcErr != nil {
		reply["error"] = rpcErr
	} else {
		reply["result"] = result
	}

	writeMu.Lock()
	_ = conn.WriteJSON(reply)
	writeMu.Unlock()
}
