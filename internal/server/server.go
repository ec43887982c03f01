// Package server maps request envelopes to AWS-backed handlers and wraps
// every outcome in a response envelope. It is exposed over plain HTTP
// (NewRouter) and as a Lambda API Gateway proxy handler (LambdaHandler).
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/llm"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/insights"
)

// Server dispatches requests. Each Server owns its client cache; two
// servers never share SDK clients.
type Server struct {
	clients  *common.ClientCache
	insights *insights.Collector
	analyzer llm.Analyzer
	logger   logrus.FieldLogger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithAnalyzer replaces the Bedrock-backed analyzer.
func WithAnalyzer(a llm.Analyzer) Option {
	return func(s *Server) { s.analyzer = a }
}

// WithClock sets the time source used for cost and usage windows.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New returns a Server that resolves SDK clients from clients.
func New(clients *common.ClientCache, opts ...Option) *Server {
	s := &Server{
		clients:  clients,
		insights: insights.NewCollector(clients),
		logger:   logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "dispatcher")
	return s
}

// HandleRequest runs the handler named by req.Method and returns its
// envelope. It never panics and never returns a Go error: unknown methods,
// handler failures and encoding failures all become error envelopes.
func (s *Server) HandleRequest(ctx context.Context, req models.Request) (resp models.Response) {
	method, ok := ParseMethod(req.Method)
	if !ok {
		requestsTotal.WithLabelValues(MethodUnknown.String(), outcomeError).Inc()
		s.logger.WithField("method", req.Method).Warn("unknown method")
		return models.Failure(unknownMethodMessage(req.Method))
	}

	logger := s.logger.WithField("method", method.String())
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			resp = methodFailure(method, fmt.Errorf("panic: %v", r))
		}
		outcome := outcomeSuccess
		if resp.Failed() {
			outcome = outcomeError
			logger.WithField("error", resp.Error).Warn("request failed")
		}
		requestsTotal.WithLabelValues(method.String(), outcome).Inc()
		requestDuration.WithLabelValues(method.String()).Observe(time.Since(start).Seconds())
		logger.WithField("duration", time.Since(start)).Debug("request handled")
	}()

	payload, err := s.dispatch(ctx, method, req.Params)
	if err != nil {
		return methodFailure(method, err)
	}
	return models.Success(payload)
}

func (s *Server) dispatch(ctx context.Context, method Method, params map[string]any) (any, error) {
	switch method {
	case MethodGetCostData:
		return s.getCostData(ctx, params)
	case MethodGetUsageMetrics:
		return s.getUsageMetrics(ctx, params)
	case MethodGetServiceInsights:
		return s.getServiceInsights(ctx, params)
	case MethodGetAIAnalysis:
		return s.getAIAnalysis(ctx, params)
	default:
		return nil, fmt.Errorf("no handler for %s", method)
	}
}

// unknownMethodMessage quotes an absent method name so the gap stays visible.
func unknownMethodMessage(name string) string {
	if name == "" {
		return `Unknown method: ""`
	}
	return "Unknown method: " + name
}

func methodFailure(method Method, err error) models.Response {
	return models.Failure(fmt.Sprintf("An error occurred in method '%s': %v", method, err))
}

var errBodyNotObject = errors.New("body is not a JSON object")

// HandleBody parses a raw request body and dispatches it. It returns the HTTP
// status to send with the envelope: 200 for every dispatcher outcome and 500
// when the body is not a request envelope. Empty, null and non-object bodies
// are not envelopes.
func (s *Server) HandleBody(ctx context.Context, body []byte) (int, models.Response) {
	req, err := decodeRequest(body)
	if err != nil {
		s.logger.WithError(err).Warn("invalid request body")
		return http.StatusInternalServerError, models.Failure(fmt.Sprintf("invalid request body: %v", err))
	}
	return http.StatusOK, s.HandleRequest(ctx, req)
}

func decodeRequest(body []byte) (models.Request, error) {
	var req models.Request
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return req, errors.New("empty body")
	}
	if trimmed[0] != '{' {
		return req, errBodyNotObject
	}
	err := json.Unmarshal(trimmed, &req)
	return req, err
}
