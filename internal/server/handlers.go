package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/llm"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/cost"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/insights"
)

// ---------------------------------------------------------------------------
// Parameters
// ---------------------------------------------------------------------------

// Pointer fields distinguish "absent" (use the default) from an explicit
// value such as an empty services list.

type costParams struct {
	Days *int `json:"days"`
}

type usageParams struct {
	Service string `json:"service"`
	Metric  string `json:"metric"`
}

type insightsParams struct {
	Services *[]string `json:"services"`
}

type analysisParams struct {
	Data any `json:"data"`
}

// decodeParams converts the loosely typed params map into v.
func decodeParams(params map[string]any, v any) error {
	if len(params) == 0 {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) getCostData(ctx context.Context, params map[string]any) (*models.CostData, error) {
	var p costParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	days := cost.DefaultCostDays
	if p.Days != nil {
		days = *p.Days
	}

	client, err := common.Client[common.CostExplorerClient](s.clients, common.ServiceCostExplorer)
	if err != nil {
		return nil, err
	}
	return cost.CollectCostData(ctx, client, days, s.now())
}

func (s *Server) getUsageMetrics(ctx context.Context, params map[string]any) (*models.UsageMetrics, error) {
	var p usageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Service == "" {
		p.Service = cost.DefaultUsageNamespace
	}
	if p.Metric == "" {
		p.Metric = cost.DefaultUsageMetric
	}

	client, err := common.Client[common.CloudWatchClient](s.clients, common.ServiceCloudWatch)
	if err != nil {
		return nil, err
	}
	return cost.CollectUsageMetrics(ctx, client, p.Service, p.Metric, s.now()), nil
}

func (s *Server) getServiceInsights(ctx context.Context, params map[string]any) (models.ServiceInsights, error) {
	var p insightsParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	services := insights.DefaultServices
	if p.Services != nil {
		services = *p.Services
	}
	return s.insights.Collect(ctx, services), nil
}

func (s *Server) getAIAnalysis(ctx context.Context, params map[string]any) (*models.Analysis, error) {
	var p analysisParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	analyzer, err := s.resolveAnalyzer()
	if err != nil {
		return nil, err
	}
	text, err := analyzer.Analyze(ctx, p.Data)
	if err != nil {
		return nil, err
	}
	return &models.Analysis{Analysis: text}, nil
}

// resolveAnalyzer returns the configured analyzer, or a Bedrock analyzer over
// the cached bedrock-runtime client.
func (s *Server) resolveAnalyzer() (llm.Analyzer, error) {
	if s.analyzer != nil {
		return s.analyzer, nil
	}
	client, err := common.Client[common.BedrockRuntimeClient](s.clients, common.ServiceBedrockRuntime)
	if err != nil {
		return nil, err
	}
	return llm.NewBedrockAnalyzer(client), nil
}
