package cost

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
)

// DefaultCostDays is the lookback window used when get_cost_data is called
// without a days parameter.
const DefaultCostDays = 10

// costMetric is the Cost Explorer metric requested for every cost query.
const costMetric = "BlendedCost"

// dateLayout is the Cost Explorer date format.
const dateLayout = "2006-01-02"

// CollectCostData calls Cost Explorer GetCostAndUsage for the window
// [now-days, now] with DAILY granularity grouped by SERVICE and returns the
// raw per-day rows. All result pages are followed.
func CollectCostData(
	ctx context.Context,
	client common.CostExplorerClient,
	days int,
	now time.Time,
) (*models.CostData, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	start, end := CostWindow(days, now)

	rows := []models.CostResultByTime{}
	var nextToken *string
	for {
		out, err := client.GetCostAndUsage(ctx, &ce.GetCostAndUsageInput{
			TimePeriod: &cetypes.DateInterval{
				Start: aws.String(start),
				End:   aws.String(end),
			},
			Granularity: cetypes.GranularityDaily,
			Metrics:     []string{costMetric},
			GroupBy: []cetypes.GroupDefinition{
				{
					Key:  aws.String("SERVICE"),
					Type: cetypes.GroupDefinitionTypeDimension,
				},
			},
			NextPageToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("GetCostAndUsage: %w", err)
		}

		for _, r := range out.ResultsByTime {
			rows = append(rows, toCostResult(r))
		}

		if out.NextPageToken == nil {
			break
		}
		nextToken = out.NextPageToken
	}

	return &models.CostData{
		Period:   start + " to " + end,
		CostData: rows,
	}, nil
}

// CostWindow returns the start and end dates for a Cost Explorer query:
// end is today (UTC) and start is days before it.
func CostWindow(days int, now time.Time) (start, end string) {
	now = now.UTC()
	end = now.Format(dateLayout)
	start = now.AddDate(0, 0, -days).Format(dateLayout)
	return
}

// toCostResult converts an SDK ResultByTime to the internal model.
func toCostResult(r cetypes.ResultByTime) models.CostResultByTime {
	out := models.CostResultByTime{
		Total:     toMetricValues(r.Total),
		Groups:    make([]models.CostGroup, 0, len(r.Groups)),
		Estimated: r.Estimated,
	}
	if r.TimePeriod != nil {
		out.TimePeriod = models.DateInterval{
			Start: aws.ToString(r.TimePeriod.Start),
			End:   aws.ToString(r.TimePeriod.End),
		}
	}
	for _, g := range r.Groups {
		out.Groups = append(out.Groups, models.CostGroup{
			Keys:    g.Keys,
			Metrics: toMetricValues(g.Metrics),
		})
	}
	return out
}

func toMetricValues(in map[string]cetypes.MetricValue) map[string]models.MetricValue {
	out := make(map[string]models.MetricValue, len(in))
	for name, v := range in {
		out[name] = models.MetricValue{
			Amount: aws.ToString(v.Amount),
			Unit:   aws.ToString(v.Unit),
		}
	}
	return out
}
