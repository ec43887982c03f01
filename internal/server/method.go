package server

// Method identifies one dispatcher handler. The set is closed: any name not
// listed here is rejected before a handler runs.
type Method int

const (
	MethodUnknown Method = iota
	MethodGetCostData
	MethodGetUsageMetrics
	MethodGetServiceInsights
	MethodGetAIAnalysis
)

var methodNames = map[Method]string{
	MethodGetCostData:        "get_cost_data",
	MethodGetUsageMetrics:    "get_usage_metrics",
	MethodGetServiceInsights: "get_service_insights",
	MethodGetAIAnalysis:      "get_ai_analysis",
}

// String returns the wire name of m, or "unknown".
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMethod maps a wire name to its Method. Matching is exact.
func ParseMethod(name string) (Method, bool) {
	for m, n := range methodNames {
		if n == name {
			return m, true
		}
	}
	return MethodUnknown, false
}

// Methods returns every known method in declaration order.
func Methods() []Method {
	return []Method{MethodGetCostData, MethodGetUsageMetrics, MethodGetServiceInsights, MethodGetAIAnalysis}
}
