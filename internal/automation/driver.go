// Package automation runs the client's operations once or on a schedule and
// keeps a record of every outcome.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/client"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/config"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
)

// aiAnalysisDays is the cost window fed into the AI analysis.
const aiAnalysisDays = 7

// errAIAnalysisNoCost is returned by RunAIAnalysis when the cost fetch fails.
const errAIAnalysisNoCost = "Failed to get cost data for AI analysis"

// API is the set of remote operations the driver calls. *client.Client
// satisfies it.
type API interface {
	GetCostAnalysis(ctx context.Context, days int) models.Response
	GetUsageMetrics(ctx context.Context, service, metric string) models.Response
	GetServiceInsights(ctx context.Context, services []string) models.Response
	GetAIAnalysis(ctx context.Context, data string) models.Response
}

// RunOnceResult holds one pass over the three scheduled operations. Usage
// monitoring yields one envelope per configured metric; the others yield one.
type RunOnceResult struct {
	CostAnalysis    models.Response   `json:"cost_analysis"`
	UsageMonitoring []models.Response `json:"usage_monitoring"`
	ServiceAudit    models.Response   `json:"service_audit"`
}

// Driver is single-threaded: its Run methods must not be called
// concurrently.
type Driver struct {
	cfg    *config.Config
	api    API
	sink   RecordSink
	logger logrus.FieldLogger
	now    func() time.Time

	records []models.Record
}

// Option configures a Driver.
type Option func(*Driver)

// WithAPI replaces the HTTP client built from the config.
func WithAPI(api API) Option {
	return func(d *Driver) { d.api = api }
}

// WithSink replaces the sink selected by the config.
func WithSink(sink RecordSink) Option {
	return func(d *Driver) { d.sink = sink }
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(d *Driver) { d.logger = logger }
}

// WithClock sets the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// New returns a Driver for cfg. Unless overridden, it talks to
// cfg.ServerURL over HTTP and, when cfg.LogResults is set, persists records
// to a bbolt file (cfg.HistoryDB) or to JSON files in cfg.ResultsDir.
func New(cfg *config.Config, opts ...Option) (*Driver, error) {
	d := &Driver{
		cfg:    cfg,
		logger: logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithField("component", "automation")

	if d.api == nil {
		d.api = client.New(cfg.ServerURL,
			client.WithTimeout(cfg.RequestTimeout.Duration),
			client.WithLogger(d.logger),
		)
	}

	if d.sink == nil && cfg.LogResults {
		if cfg.HistoryDB != "" {
			sink, err := OpenBoltSink(cfg.HistoryDB)
			if err != nil {
				return nil, err
			}
			d.sink = sink
		} else {
			d.sink = NewFileSink(cfg.ResultsDir)
		}
	}
	return d, nil
}

// Close releases the record sink.
func (d *Driver) Close() error {
	if d.sink == nil {
		return nil
	}
	return d.sink.Close()
}

// Records returns a copy of every record made so far, oldest first.
func (d *Driver) Records() []models.Record {
	out := make([]models.Record, len(d.records))
	copy(out, d.records)
	return out
}

// RunCostAnalysis fetches cost data for the configured window.
func (d *Driver) RunCostAnalysis(ctx context.Context) models.Response {
	resp := d.api.GetCostAnalysis(ctx, d.cfg.CostAnalysisDays)
	d.record(models.OperationCostAnalysis, resp)
	return resp
}

// RunUsageMonitoring queries each configured metric in config order.
func (d *Driver) RunUsageMonitoring(ctx context.Context) []models.Response {
	results := make([]models.Response, 0, len(d.cfg.UsageMetrics))
	for _, m := range d.cfg.UsageMetrics {
		results = append(results, d.api.GetUsageMetrics(ctx, m.Service, m.Metric))
	}
	d.record(models.OperationUsageMonitoring, results)
	return results
}

// RunServiceAudit summarises the configured services.
func (d *Driver) RunServiceAudit(ctx context.Context) models.Response {
	resp := d.api.GetServiceInsights(ctx, d.cfg.AuditServices)
	d.record(models.OperationServiceAudit, resp)
	return resp
}

// RunAIAnalysis feeds the last week of cost data to the analyzer. Nothing is
// recorded when the cost fetch fails.
func (d *Driver) RunAIAnalysis(ctx context.Context) models.Response {
	cost := d.api.GetCostAnalysis(ctx, aiAnalysisDays)
	if cost.Failed() {
		d.logger.WithField("error", cost.Error).Warn("cost fetch for AI analysis failed")
		return models.Failure(errAIAnalysisNoCost)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, cost.Result, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(cost.Result)
	}

	resp := d.api.GetAIAnalysis(ctx, pretty.String())
	d.record(models.OperationAIAnalysis, resp)
	return resp
}

// RunOnce runs each scheduled operation once, in schedule order.
func (d *Driver) RunOnce(ctx context.Context) RunOnceResult {
	return RunOnceResult{
		CostAnalysis:    d.RunCostAnalysis(ctx),
		UsageMonitoring: d.RunUsageMonitoring(ctx),
		ServiceAudit:    d.RunServiceAudit(ctx),
	}
}

// record appends a record and writes it through the sink. Persistence
// failures are logged and never fail the operation.
func (d *Driver) record(operation string, result any) {
	logger := d.logger.WithField("operation", operation)

	rec, err := models.NewRecord(d.now(), operation, result)
	if err != nil {
		logger.WithError(err).Error("failed to build record")
		return
	}
	d.records = append(d.records, rec)

	if d.sink == nil {
		return
	}
	if err := d.sink.Save(rec); err != nil {
		logger.WithError(err).Error("failed to persist record")
		return
	}
	logger.Debug("record persisted")
}
