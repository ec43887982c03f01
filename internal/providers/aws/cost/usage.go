package cost

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
)

// Defaults for get_usage_metrics.
const (
	DefaultUsageNamespace = "AWS/EC2"
	DefaultUsageMetric    = "CPUUtilization"
)

const (
	usageWindow        = 24 * time.Hour
	usagePeriodSeconds = 3600 // hourly resolution → ≤24 points
)

// CollectUsageMetrics calls CloudWatch GetMetricStatistics for the Average
// of namespace/metric over the 24 hours before now.
//
// Never returns an error: a failed query yields a payload with Error set and
// no datapoints, which callers return as a normal result.
func CollectUsageMetrics(
	ctx context.Context,
	cw common.CloudWatchClient,
	namespace, metric string,
	now time.Time,
) *models.UsageMetrics {
	out, err := cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(namespace),
		MetricName: aws.String(metric),
		StartTime:  aws.Time(now.Add(-usageWindow)),
		EndTime:    aws.Time(now),
		Period:     aws.Int32(usagePeriodSeconds),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err != nil {
		return &models.UsageMetrics{
			Service:    namespace,
			Metric:     metric,
			Datapoints: []models.Datapoint{},
			Error:      fmt.Sprintf("No data available: %v", err),
		}
	}

	points := toDatapoints(out.Datapoints)
	count := len(points)
	return &models.UsageMetrics{
		Service:    namespace,
		Metric:     metric,
		Datapoints: points,
		Count:      &count,
	}
}

// toDatapoints converts SDK datapoints to the internal model, ordered by
// timestamp. CloudWatch returns them unordered.
func toDatapoints(in []cwtypes.Datapoint) []models.Datapoint {
	sort.SliceStable(in, func(i, j int) bool {
		return aws.ToTime(in[i].Timestamp).Before(aws.ToTime(in[j].Timestamp))
	})

	out := make([]models.Datapoint, 0, len(in))
	for _, dp := range in {
		out = append(out, models.Datapoint{
			Timestamp: aws.ToTime(dp.Timestamp).UTC().Format(time.RFC3339),
			Average:   aws.ToFloat64(dp.Average),
			Unit:      string(dp.Unit),
		})
	}
	return out
}
