// Package client sends request envelopes to a remote dispatcher and
// normalizes every outcome, transport failures included, into a response
// envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/version"
)

// DefaultTimeout bounds every request, connection and body read included.
const DefaultTimeout = 30 * time.Second

// Defaults applied by the convenience wrappers.
const (
	DefaultCostDays      = 30
	DefaultUsageService  = "AWS/EC2"
	DefaultUsageMetric   = "CPUUtilization"
	maxResponseBodyBytes = 16 << 20
)

// DefaultAuditServices is used by GetServiceInsights when services is empty.
var DefaultAuditServices = []string{"EC2", "S3", "RDS"}

// Client posts request envelopes to a single server URL.
type Client struct {
	url    string
	http   *http.Client
	logger logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a Client for serverURL.
func New(serverURL string, opts ...Option) *Client {
	c := &Client{
		url:    serverURL,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "client")
	return c
}

// URL returns the server URL the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Send posts {method, params} and returns the server's envelope. It never
// returns a Go error:
//   - a non-200 status becomes {error: "HTTP <code>: <body>"}
//   - any transport, encoding or decoding failure becomes
//     {error: "Request failed: <err>"}
func (c *Client) Send(ctx context.Context, method string, params map[string]any) models.Response {
	logger := c.logger.WithField("method", method)

	resp, err := c.send(ctx, method, params)
	if err != nil {
		logger.WithError(err).Warn("request failed")
		return models.Failure(fmt.Sprintf("Request failed: %v", err))
	}
	if resp.Failed() {
		logger.WithField("error", resp.Error).Debug("server returned error envelope")
	}
	return resp
}

func (c *Client) send(ctx context.Context, method string, params map[string]any) (models.Response, error) {
	body, err := json.Marshal(models.Request{Method: method, Params: params})
	if err != nil {
		return models.Response{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return models.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	httpResp, err := c.http.Do(req)
	if err != nil {
		return models.Response{}, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBodyBytes))
	if err != nil {
		return models.Response{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return models.Failure(fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode, raw)), nil
	}

	var resp models.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// ---------------------------------------------------------------------------
// Convenience wrappers
// ---------------------------------------------------------------------------

// GetCostAnalysis requests cost data for the last days days. A non-positive
// value selects DefaultCostDays.
func (c *Client) GetCostAnalysis(ctx context.Context, days int) models.Response {
	if days <= 0 {
		days = DefaultCostDays
	}
	return c.Send(ctx, "get_cost_data", map[string]any{"days": days})
}

// GetUsageMetrics requests the 24-hour average of service/metric. Empty
// values select the EC2 CPU defaults.
func (c *Client) GetUsageMetrics(ctx context.Context, service, metric string) models.Response {
	if service == "" {
		service = DefaultUsageService
	}
	if metric == "" {
		metric = DefaultUsageMetric
	}
	return c.Send(ctx, "get_usage_metrics", map[string]any{"service": service, "metric": metric})
}

// GetServiceInsights requests resource counts for services, or for
// DefaultAuditServices when services is empty.
func (c *Client) GetServiceInsights(ctx context.Context, services []string) models.Response {
	if len(services) == 0 {
		services = DefaultAuditServices
	}
	return c.Send(ctx, "get_service_insights", map[string]any{"services": services})
}

// GetAIAnalysis asks the server to analyse data.
func (c *Client) GetAIAnalysis(ctx context.Context, data string) models.Response {
	return c.Send(ctx, "get_ai_analysis", map[string]any{"data": data})
}
