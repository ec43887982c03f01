package models

// ---------------------------------------------------------------------------
// AWS Cost Explorer models
//
// Field names follow the Cost Explorer wire shape (TimePeriod, Groups, ...)
// so that cost rows read the same whether they came from this service or
// straight from the AWS API.
// ---------------------------------------------------------------------------

// CostData is the payload of get_cost_data.
type CostData struct {
	// Period is the human-readable query window: "<start> to <end>".
	Period string `json:"period"`

	// CostData holds one row per day in the window, as returned by
	// GetCostAndUsage with DAILY granularity.
	CostData []CostResultByTime `json:"cost_data"`
}

// DateInterval is a Cost Explorer [Start, End) date range (YYYY-MM-DD).
type DateInterval struct {
	Start string `json:"Start"`
	End   string `json:"End"`
}

// MetricValue is a single cost amount with its unit (usually "USD").
type MetricValue struct {
	Amount string `json:"Amount"`
	Unit   string `json:"Unit"`
}

// CostGroup is a per-service breakdown within one time period.
type CostGroup struct {
	Keys    []string               `json:"Keys"`
	Metrics map[string]MetricValue `json:"Metrics"`
}

// CostResultByTime is one time period of Cost Explorer results.
type CostResultByTime struct {
	TimePeriod DateInterval           `json:"TimePeriod"`
	Total      map[string]MetricValue `json:"Total"`
	Groups     []CostGroup            `json:"Groups"`
	Estimated  bool                   `json:"Estimated"`
}

// ---------------------------------------------------------------------------
// CloudWatch models
// ---------------------------------------------------------------------------

// Datapoint is a single CloudWatch statistic sample. Timestamp is RFC 3339.
type Datapoint struct {
	Timestamp string  `json:"Timestamp"`
	Average   float64 `json:"Average"`
	Unit      string  `json:"Unit,omitempty"`
}

// UsageMetrics is the payload of get_usage_metrics. When the metric query
// fails, Error is set and Datapoints is empty; the payload is still returned
// as a successful result.
type UsageMetrics struct {
	Service    string      `json:"service"`
	Metric     string      `json:"metric"`
	Datapoints []Datapoint `json:"datapoints"`
	Count      *int        `json:"count,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// Bedrock models
// ---------------------------------------------------------------------------

// Analysis is the payload of get_ai_analysis.
type Analysis struct {
	Analysis string `json:"analysis"`
}
