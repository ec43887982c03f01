package models

import (
	"encoding/json"
	"time"
)

// Operation names used for automation records and persisted files.
const (
	OperationCostAnalysis    = "cost_analysis"
	OperationUsageMonitoring = "usage_monitoring"
	OperationServiceAudit    = "service_audit"
	OperationAIAnalysis      = "ai_analysis"
)

// RecordTimeFormat is the ISO-8601 layout used for Record.Timestamp.
const RecordTimeFormat = "2006-01-02T15:04:05.000000"

// Record is one automation call and its outcome. Result is a single
// Response for most operations and a []Response for usage monitoring, so
// it is stored as raw JSON.
type Record struct {
	Timestamp string          `json:"timestamp"`
	Operation string          `json:"operation"`
	Result    json.RawMessage `json:"result"`
}

// NewRecord stamps result with t and marshals it into a Record.
func NewRecord(t time.Time, operation string, result any) (Record, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Timestamp: t.Format(RecordTimeFormat),
		Operation: operation,
		Result:    raw,
	}, nil
}
