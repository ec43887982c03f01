// Package insights builds the per-service resource counts returned by
// get_service_insights.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
)

// DefaultServices is used when get_service_insights is called without a
// services parameter.
var DefaultServices = []string{"EC2", "S3", "RDS"}

// summarizer produces the counts for one service from the cached clients.
type summarizer func(ctx context.Context, clients *common.ClientCache) (map[string]int, error)

// summarizers maps a lowercase service key to its summary function. A key
// that resolves to a client but has no entry here yields an error entry.
var summarizers = map[string]summarizer{
	common.ServiceEC2:   summarizeEC2,
	common.ServiceS3:    summarizeS3,
	common.ServiceRDS:   summarizeRDS,
	common.ServiceIAM:   summarizeIAM,
	common.ServiceELBv2: summarizeELB,
}

// serviceAliases maps alternate service names onto the key whose client and
// summary serve them.
var serviceAliases = map[string]string{
	"elb": common.ServiceELBv2,
}

// Collector summarises AWS services through a shared ClientCache.
type Collector struct {
	clients *common.ClientCache
}

// NewCollector returns a Collector that resolves SDK clients from clients.
func NewCollector(clients *common.ClientCache) *Collector {
	return &Collector{clients: clients}
}

// Collect returns one entry per requested service, keyed by the name exactly
// as the caller supplied it. Services are summarised one after another in
// request order. A failure in one service is recorded in that service's
// entry and never affects the others.
func (c *Collector) Collect(ctx context.Context, services []string) models.ServiceInsights {
	out := make(models.ServiceInsights, len(services))
	for _, name := range services {
		out[name] = c.collectOne(ctx, name)
	}
	return out
}

func (c *Collector) collectOne(ctx context.Context, name string) models.ServiceInsight {
	key := strings.ToLower(name)
	if alias, ok := serviceAliases[key]; ok {
		key = alias
	}

	// Resolve the client first so unknown services report the cache's error.
	if _, err := c.clients.Get(key); err != nil {
		return models.InsightError(err)
	}
	summarize, ok := summarizers[key]
	if !ok {
		return models.InsightError(fmt.Errorf("no insight summary for service %q", key))
	}

	counts, err := summarize(ctx, c.clients)
	if err != nil {
		return models.InsightError(err)
	}
	return models.ServiceInsight{Counts: counts}
}
