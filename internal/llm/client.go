package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
)

// Defaults for the Titan text model used by get_ai_analysis.
const (
	DefaultModelID       = "amazon.titan-text-premier-v1:0"
	DefaultMaxTokenCount = 500
	DefaultTemperature   = 0.7
)

// promptPrefix is prepended to the serialized data in every analysis prompt.
const promptPrefix = "Analyze this AWS cost/usage data and provide optimization recommendations: "

// ErrNoResults is returned when the model response carries no generated text.
var ErrNoResults = errors.New("model returned no results")

// Analyzer is the interface for all AI-assisted operations.
//
// The model must never:
//   - Make AWS SDK calls
//   - Control program flow
//
// It only turns already-collected data into prose recommendations.
type Analyzer interface {
	// Analyze returns the generated recommendation text for data.
	Analyze(ctx context.Context, data any) (string, error)
}

// titanRequest is the Bedrock request body for Amazon Titan text models.
type titanRequest struct {
	InputText            string               `json:"inputText"`
	TextGenerationConfig textGenerationConfig `json:"textGenerationConfig"`
}

type textGenerationConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
}

type titanResponse struct {
	Results []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

// BedrockAnalyzer invokes a Titan text model through Bedrock Runtime.
type BedrockAnalyzer struct {
	client common.BedrockRuntimeClient

	ModelID       string
	MaxTokenCount int
	Temperature   float64
}

// NewBedrockAnalyzer returns an analyzer with the default model settings.
func NewBedrockAnalyzer(client common.BedrockRuntimeClient) *BedrockAnalyzer {
	return &BedrockAnalyzer{
		client:        client,
		ModelID:       DefaultModelID,
		MaxTokenCount: DefaultMaxTokenCount,
		Temperature:   DefaultTemperature,
	}
}

// Analyze implements Analyzer.
func (a *BedrockAnalyzer) Analyze(ctx context.Context, data any) (string, error) {
	prompt, err := BuildPrompt(data)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(titanRequest{
		InputText: prompt,
		TextGenerationConfig: textGenerationConfig{
			MaxTokenCount: a.MaxTokenCount,
			Temperature:   a.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode model request: %w", err)
	}

	out, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(a.ModelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("InvokeModel %s: %w", a.ModelID, err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", ErrNoResults
	}
	return resp.Results[0].OutputText, nil
}

// BuildPrompt appends data to the fixed analysis instruction. Strings are
// used verbatim; anything else is rendered as JSON. A nil payload renders as
// an empty object.
func BuildPrompt(data any) (string, error) {
	switch v := data.(type) {
	case nil:
		data = map[string]any{}
	case string:
		return promptPrefix + v, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode analysis data: %w", err)
	}
	return promptPrefix + string(raw), nil
}
