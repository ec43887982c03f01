package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "config.json"

// Config is the automation driver's configuration. It is loaded once from a
// JSON file (or YAML, by extension) and never reloaded.
type Config struct {
	// ServerURL is the dispatcher endpoint. Required.
	ServerURL string `json:"server_url" yaml:"server_url"`

	// CostAnalysisDays is the lookback window for scheduled cost analysis.
	CostAnalysisDays int `json:"cost_analysis_days" yaml:"cost_analysis_days"`

	// UsageMetrics lists the metrics queried by usage monitoring, in order.
	UsageMetrics []UsageMetric `json:"usage_metrics" yaml:"usage_metrics"`

	// AuditServices lists the services summarised by the service audit.
	AuditServices []string `json:"audit_services" yaml:"audit_services"`

	// LogResults enables persisting each record through the record sink.
	LogResults bool `json:"log_results" yaml:"log_results"`

	// ResultsDir is where mcp_results_<operation>.json files are written.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// HistoryDB selects a bbolt file as the record sink instead of JSON files.
	HistoryDB string `json:"history_db,omitempty" yaml:"history_db,omitempty"`

	// RequestTimeout bounds each request to the server.
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`

	// PollInterval is how often the scheduler checks for due jobs.
	PollInterval Duration `json:"poll_interval" yaml:"poll_interval"`

	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
}

// UsageMetric is one CloudWatch namespace/metric pair.
type UsageMetric struct {
	Service string `json:"service" yaml:"service"`
	Metric  string `json:"metric"  yaml:"metric"`
}

// ScheduleConfig holds one cron expression per scheduled job. Standard
// five-field expressions and descriptors such as "@every 4h" are accepted.
type ScheduleConfig struct {
	CostAnalysis    string `json:"cost_analysis"    yaml:"cost_analysis"`
	UsageMonitoring string `json:"usage_monitoring" yaml:"usage_monitoring"`
	ServiceAudit    string `json:"service_audit"    yaml:"service_audit"`
}

// Default returns a Config with every optional key at its documented default.
// ServerURL is left empty.
func Default() *Config {
	return &Config{
		CostAnalysisDays: 30,
		UsageMetrics: []UsageMetric{
			{Service: "AWS/EC2", Metric: "CPUUtilization"},
			{Service: "AWS/RDS", Metric: "DatabaseConnections"},
		},
		AuditServices:  []string{"EC2", "S3", "RDS"},
		LogResults:     true,
		ResultsDir:     ".",
		RequestTimeout: Duration{30 * time.Second},
		PollInterval:   Duration{time.Minute},
		Schedule: ScheduleConfig{
			CostAnalysis:    "0 9 * * *",
			UsageMonitoring: "@every 4h",
			ServiceAudit:    "@every 168h",
		},
	}
}

// Load reads path, overlays it on Default and validates the result.
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cfg for semantic correctness. All problems are collected
// and joined; Validate never stops at the first one.
func (c *Config) Validate() error {
	var errs []error

	if c.ServerURL == "" {
		errs = append(errs, errors.New("server_url: required"))
	} else if u, err := url.Parse(c.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server_url: %q is not an http(s) URL", c.ServerURL))
	}

	if c.CostAnalysisDays <= 0 {
		errs = append(errs, fmt.Errorf("cost_analysis_days: must be positive, got %d", c.CostAnalysisDays))
	}

	for i, m := range c.UsageMetrics {
		if m.Service == "" || m.Metric == "" {
			errs = append(errs, fmt.Errorf("usage_metrics[%d]: service and metric are required", i))
		}
	}

	if c.RequestTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout: must be positive, got %s", c.RequestTimeout))
	}
	if c.PollInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval: must be positive, got %s", c.PollInterval))
	}

	for name, spec := range map[string]string{
		"schedule.cost_analysis":    c.Schedule.CostAnalysis,
		"schedule.usage_monitoring": c.Schedule.UsageMonitoring,
		"schedule.service_audit":    c.Schedule.ServiceAudit,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// Duration
// ---------------------------------------------------------------------------

// Duration is a time.Duration written as a Go duration string ("30s") or a
// number of seconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = parsed
	case float64:
		d.Duration = time.Duration(val * float64(time.Second))
	case int:
		d.Duration = time.Duration(val) * time.Second
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}
