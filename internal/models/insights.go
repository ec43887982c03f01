package models

import (
	"encoding/json"
)

// ServiceInsight is the per-service summary produced by get_service_insights.
// On success it serializes as a flat object of counters, for example
// {"total_instances": 4, "running_instances": 3}; on failure as
// {"error": "..."}.
type ServiceInsight struct {
	Counts map[string]int
	Error  string
}

// InsightError builds a failed insight entry.
func InsightError(err error) ServiceInsight {
	return ServiceInsight{Error: err.Error()}
}

// Failed reports whether the insight entry captured an error.
func (s ServiceInsight) Failed() bool {
	return s.Error != ""
}

// MarshalJSON flattens Counts into the top-level object.
func (s ServiceInsight) MarshalJSON() ([]byte, error) {
	if s.Failed() {
		return json.Marshal(map[string]string{"error": s.Error})
	}
	counts := s.Counts
	if counts == nil {
		counts = map[string]int{}
	}
	return json.Marshal(counts)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *ServiceInsight) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["error"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		*s = ServiceInsight{Error: msg}
		return nil
	}
	counts := make(map[string]int, len(fields))
	for k, raw := range fields {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return err
		}
		counts[k] = n
	}
	*s = ServiceInsight{Counts: counts}
	return nil
}

// ServiceInsights maps each requested service name to its summary.
// encoding/json sorts map keys, so the serialized form is deterministic.
type ServiceInsights map[string]ServiceInsight
