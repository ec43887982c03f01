package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	agtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// API Gateway defaults.
const (
	DefaultAPIName  = "mcp-api"
	DefaultAPIStage = "dev"
)

// APIOptions configures DeployAPI. Empty fields take the defaults.
type APIOptions struct {
	Name         string
	Description  string
	Stage        string
	FunctionName string
}

// APIResult describes the deployed REST API.
type APIResult struct {
	APIID string
	URL   string
}

// DeployAPI creates a REST API whose root resource proxies POST to the
// function, deploys it to a stage and allows API Gateway to invoke the
// function. The invoke URL is returned.
func DeployAPI(ctx context.Context, gw APIGatewayAPI, lc LambdaAPI, opts APIOptions) (*APIResult, error) {
	if opts.Name == "" {
		opts.Name = DefaultAPIName
	}
	if opts.Description == "" {
		opts.Description = "MCP Server API"
	}
	if opts.Stage == "" {
		opts.Stage = DefaultAPIStage
	}
	if opts.FunctionName == "" {
		opts.FunctionName = DefaultFunctionName
	}

	fn, err := lc.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(opts.FunctionName)})
	if err != nil {
		return nil, fmt.Errorf("get function %s: %w", opts.FunctionName, err)
	}
	if fn.Configuration == nil || fn.Configuration.FunctionArn == nil {
		return nil, fmt.Errorf("get function %s: response has no ARN", opts.FunctionName)
	}
	functionARN := aws.ToString(fn.Configuration.FunctionArn)
	region, account, err := splitFunctionARN(functionARN)
	if err != nil {
		return nil, err
	}

	api, err := gw.CreateRestApi(ctx, &apigateway.CreateRestApiInput{
		Name:        aws.String(opts.Name),
		Description: aws.String(opts.Description),
	})
	if err != nil {
		return nil, fmt.Errorf("create REST API %s: %w", opts.Name, err)
	}
	apiID := aws.ToString(api.Id)

	rootID, err := rootResourceID(ctx, gw, apiID)
	if err != nil {
		return nil, err
	}

	if _, err := gw.PutMethod(ctx, &apigateway.PutMethodInput{
		RestApiId:         aws.String(apiID),
		ResourceId:        aws.String(rootID),
		HttpMethod:        aws.String("POST"),
		AuthorizationType: aws.String("NONE"),
	}); err != nil {
		return nil, fmt.Errorf("put method: %w", err)
	}

	if _, err := gw.PutIntegration(ctx, &apigateway.PutIntegrationInput{
		RestApiId:             aws.String(apiID),
		ResourceId:            aws.String(rootID),
		HttpMethod:            aws.String("POST"),
		Type:                  agtypes.IntegrationTypeAwsProxy,
		IntegrationHttpMethod: aws.String("POST"),
		Uri:                   aws.String(integrationURI(region, functionARN)),
	}); err != nil {
		return nil, fmt.Errorf("put integration: %w", err)
	}

	if _, err := gw.CreateDeployment(ctx, &apigateway.CreateDeploymentInput{
		RestApiId: aws.String(apiID),
		StageName: aws.String(opts.Stage),
	}); err != nil {
		return nil, fmt.Errorf("create deployment %s: %w", opts.Stage, err)
	}

	var conflict *lambdatypes.ResourceConflictException
	_, err = lc.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: aws.String(opts.FunctionName),
		StatementId:  aws.String("api-gateway-invoke-" + apiID),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String("apigateway.amazonaws.com"),
		SourceArn:    aws.String(fmt.Sprintf("arn:aws:execute-api:%s:%s:%s/*/*", region, account, apiID)),
	})
	if err != nil && !errors.As(err, &conflict) {
		return nil, fmt.Errorf("grant API Gateway invoke: %w", err)
	}

	return &APIResult{
		APIID: apiID,
		URL:   fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com/%s", apiID, region, opts.Stage),
	}, nil
}

// rootResourceID returns the id of the "/" resource of a new REST API.
func rootResourceID(ctx context.Context, gw APIGatewayAPI, apiID string) (string, error) {
	out, err := gw.GetResources(ctx, &apigateway.GetResourcesInput{RestApiId: aws.String(apiID)})
	if err != nil {
		return "", fmt.Errorf("get resources: %w", err)
	}
	for _, r := range out.Items {
		if aws.ToString(r.Path) == "/" {
			return aws.ToString(r.Id), nil
		}
	}
	return "", fmt.Errorf("REST API %s has no root resource", apiID)
}

func integrationURI(region, functionARN string) string {
	return fmt.Sprintf("arn:aws:apigateway:%s:lambda:path/2015-03-31/functions/%s/invocations", region, functionARN)
}

// splitFunctionARN extracts region and account from
// arn:aws:lambda:<region>:<account>:function:<name>.
func splitFunctionARN(arn string) (region, account string, err error) {
	parts := strings.Split(arn, ":")
	if len(parts) < 7 || parts[0] != "arn" || parts[2] != "lambda" {
		return "", "", fmt.Errorf("not a Lambda function ARN: %q", arn)
	}
	return parts[3], parts[4], nil
}
