package transport_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/nsbm60/marketdata-ui-sub001/internal/logger"
	"github.com/nsbm60/marketdata-ui-sub001/internal/transport"
	"github.com/nsbm60/marketdata-ui-sub001/internal/transport/gatewaytest"
	"github.com/nsbm60/marketdata-ui-sub001/internal/types"
	"github.com/nsbm60/marketdata-ui-sub001/internal/wire"
	"github.com/nsbm60/marketdata-ui-sub001/mocks"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

type GatewayTestSuite struct {
	suite.Suite
	server  *gatewaytest.Server
	gateway *transport.WSGateway

	mu        sync.Mutex
	envelopes []wire.Envelope
}

func (s *GatewayTestSuite) SetupTest() {
	s.envelopes = nil
	s.server = gatewaytest.NewServer()
	s.Require().NoError(s.server.Start(""))

	gateway, err := transport.Dial(context.Background(), s.server.URL(), func(envelope wire.Envelope) {
		s.mu.Lock()
		s.envelopes = append(s.envelopes, envelope)
		s.mu.Unlock()
	}, logger.NewNopLogger())
	s.Require().NoError(err)
	s.gateway = gateway
}

func (s *GatewayTestSuite) TearDownTest() {
	s.gateway.Close()
	s.server.Stop()
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewayTestSuite))
}

func (s *GatewayTestSuite) envelopeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.envelopes)
}

func (s *GatewayTestSuite) TestRequestRoundTrip() {
	s.server.RespondJSON(wire.MethodGetChartData, wire.ChartDataResponse{
		Bars: []wire.BarPayload{
			{Timestamp: 1700000000000, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000},
		},
		AggregateMultiple: 1,
		HasMore:           true,
		ReportTopic:       "report.candle.NVDA.5m",
	})

	client := transport.NewClient(s.gateway)
	resp, err := client.GetChartData(context.Background(), wire.ChartDataRequest{
		Symbol:    "nvda",
		Timeframe: "5m",
		BarCount:  100,
		Session:   types.SessionRegular,
	})
	s.Require().NoError(err)
	s.Assert().Len(resp.Bars, 1)
	s.Assert().True(resp.HasMore)
	s.Assert().Equal("report.candle.NVDA.5m", resp.ReportTopic)

	// The client normalizes the symbol before it reaches the wire.
	requests := s.server.RequestsFor(wire.MethodGetChartData)
	s.Require().Len(requests, 1)
	s.Assert().NotEmpty(requests[0].ID)

	var sent wire.ChartDataRequest
	s.Require().NoError(json.Unmarshal(requests[0].Params, &sent))
	s.Assert().Equal("NVDA", sent.Symbol)
}

func (s *GatewayTestSuite) TestRequestRoundTripWithGeneratedSeries() {
	gen := mocks.NewDataGenerator(7)
	config := mocks.DefaultConfig()
	config.Count = 300

	s.server.RespondJSON(wire.MethodGetChartData, wire.ChartDataResponse{
		Bars:              gen.GeneratePayloads(config),
		AggregateMultiple: 1,
		HasMore:           true,
	})

	client := transport.NewClient(s.gateway)
	resp, err := client.GetChartData(context.Background(), wire.ChartDataRequest{
		Symbol:    "SPY",
		Timeframe: "5m",
		BarCount:  300,
		Session:   types.SessionRegular,
	})
	s.Require().NoError(err)
	s.Require().Len(resp.Bars, 300)

	// The series survives the full encode/decode round trip in order.
	for i := 1; i < len(resp.Bars); i++ {
		s.Assert().Greater(resp.Bars[i].Timestamp, resp.Bars[i-1].Timestamp)
	}
}

func (s *GatewayTestSuite) TestRequestRemoteError() {
	s.server.Respond(wire.MethodGetChartData, func(json.RawMessage) (any, *gatewaytest.RPCError) {
		return nil, &gatewaytest.RPCError{Code: 404, Message: "unknown symbol"}
	})

	client := transport.NewClient(s.gateway)
	_, err := client.GetChartData(context.Background(), wire.ChartDataRequest{Symbol: "XXXX", Timeframe: "5m"})
	s.Assert().True(errors.HasCode(err, errors.ErrCodeRemoteError))
}

func (s *GatewayTestSuite) TestRequestTimeout() {
	// No responder registered: the request never gets a reply.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.gateway.Request(ctx, wire.MethodGetChartData, nil)
	s.Assert().True(errors.HasCode(err, errors.ErrCodeRequestTimeout))
}

func (s *GatewayTestSuite) TestNotifyIsFireAndForget() {
	client := transport.NewClient(s.gateway)
	s.Require().NoError(client.StopCandleReport("NVDA", "5m"))

	s.Require().Eventually(func() bool {
		return len(s.server.RequestsFor(wire.MethodStopCandleReport)) == 1
	}, time.Second, 5*time.Millisecond)

	requests := s.server.RequestsFor(wire.MethodStopCandleReport)
	s.Assert().Empty(requests[0].ID)

	var sent wire.StopCandleReportRequest
	s.Require().NoError(json.Unmarshal(requests[0].Params, &sent))
	s.Assert().Equal("NVDA", sent.Symbol)
	s.Assert().Equal("5m", sent.Timeframe)
}

func (s *GatewayTestSuite) TestSendSubscriptionFrame() {
	frame := wire.NewSubscriptionFrame(wire.FrameSubscribe, types.ChannelEquity, "NVDA")
	s.Require().NoError(s.gateway.Send(frame))

	s.Require().Eventually(func() bool {
		return len(s.server.Frames()) == 1
	}, time.Second, 5*time.Millisecond)

	sent := s.server.Frames()[0]
	s.Assert().Equal(wire.FrameSubscribe, sent.Type)
	s.Assert().Equal([]string{"equity"}, sent.Channels)
	s.Assert().Equal([]string{"NVDA"}, sent.Symbols)
}

func (s *GatewayTestSuite) TestEnvelopeDelivery() {
	err := s.server.InjectEnvelope("md.equity.trade.NVDA", map[string]any{
		"last":      100.5,
		"timestamp": 1700000000000,
	})
	s.Require().NoError(err)

	s.Require().Eventually(func() bool {
		return s.envelopeCount() == 1
	}, time.Second, 5*time.Millisecond)

	s.mu.Lock()
	envelope := s.envelopes[0]
	s.mu.Unlock()

	s.Assert().Equal("md.equity.trade.NVDA", envelope.Topic)

	payload, err := wire.DecodeTick(envelope.Data)
	s.Require().NoError(err)
	s.Require().NotNil(payload.Last)
	s.Assert().Equal(100.5, *payload.Last)
}

func (s *GatewayTestSuite) TestRequestAfterCloseFails() {
	s.gateway.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := s.gateway.Request(ctx, wire.MethodGetChartData, nil)
	s.Assert().Error(err)
}
