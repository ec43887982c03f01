package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations used by this project. Using narrow
// interfaces instead of the full SDK clients makes mocking in unit tests
// trivial: create a struct that satisfies the interface and return canned data.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used for identity checks.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)
}

// CostExplorerClient covers the Cost Explorer operations behind get_cost_data.
type CostExplorerClient interface {
	GetCostAndUsage(
		ctx context.Context,
		params *ce.GetCostAndUsageInput,
		optFns ...func(*ce.Options),
	) (*ce.GetCostAndUsageOutput, error)
}

// CloudWatchClient covers the CloudWatch operations behind get_usage_metrics.
type CloudWatchClient interface {
	GetMetricStatistics(
		ctx context.Context,
		params *cloudwatch.GetMetricStatisticsInput,
		optFns ...func(*cloudwatch.Options),
	) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// BedrockRuntimeClient covers the model invocation behind get_ai_analysis.
type BedrockRuntimeClient interface {
	InvokeModel(
		ctx context.Context,
		params *bedrockruntime.InvokeModelInput,
		optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.InvokeModelOutput, error)
}

// EC2Client covers the EC2 operations used for service insights.
// Satisfies ec2.DescribeInstancesAPIClient for the SDK v2 paginator.
type EC2Client interface {
	DescribeInstances(
		ctx context.Context,
		params *ec2.DescribeInstancesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeInstancesOutput, error)
}

// S3Client covers the S3 operations used for service insights.
type S3Client interface {
	ListBuckets(
		ctx context.Context,
		params *s3.ListBucketsInput,
		optFns ...func(*s3.Options),
	) (*s3.ListBucketsOutput, error)
}

// RDSClient covers the RDS operations used for service insights.
// Satisfies rds.DescribeDBInstancesAPIClient for the SDK v2 paginator.
type RDSClient interface {
	DescribeDBInstances(
		ctx context.Context,
		params *rds.DescribeDBInstancesInput,
		optFns ...func(*rds.Options),
	) (*rds.DescribeDBInstancesOutput, error)
}

// IAMClient covers the IAM operations used for service insights.
// Embeds ListUsersAPIClient so the SDK paginator can be used directly.
type IAMClient interface {
	iam.ListUsersAPIClient
}

// ELBv2Client covers the Elastic Load Balancing v2 operations used for
// service insights.
type ELBv2Client interface {
	DescribeLoadBalancers(
		ctx context.Context,
		params *elbv2.DescribeLoadBalancersInput,
		optFns ...func(*elbv2.Options),
	) (*elbv2.DescribeLoadBalancersOutput, error)
}

// ---------------------------------------------------------------------------
// Builders
// ---------------------------------------------------------------------------

// Service keys understood by DefaultBuilders. Keys are lowercase; lookups
// through ClientCache are case-insensitive.
const (
	ServiceSTS            = "sts"
	ServiceCostExplorer   = "ce"
	ServiceCloudWatch     = "cloudwatch"
	ServiceBedrockRuntime = "bedrock-runtime"
	ServiceEC2            = "ec2"
	ServiceS3             = "s3"
	ServiceRDS            = "rds"
	ServiceIAM            = "iam"
	ServiceELBv2          = "elbv2"
)

// ClientBuilder constructs one SDK client from an aws.Config.
type ClientBuilder func(cfg aws.Config) any

// DefaultBuilders returns the production builders for every service the
// dispatcher can reach. Cost Explorer is always pointed at us-east-1 because
// it is a global service only reachable in that region.
func DefaultBuilders() map[string]ClientBuilder {
	return map[string]ClientBuilder{
		ServiceSTS: func(cfg aws.Config) any { return sts.NewFromConfig(cfg) },
		ServiceCostExplorer: func(cfg aws.Config) any {
			ceCfg := cfg
			ceCfg.Region = "us-east-1"
			return ce.NewFromConfig(ceCfg)
		},
		ServiceCloudWatch:     func(cfg aws.Config) any { return cloudwatch.NewFromConfig(cfg) },
		ServiceBedrockRuntime: func(cfg aws.Config) any { return bedrockruntime.NewFromConfig(cfg) },
		ServiceEC2:            func(cfg aws.Config) any { return ec2.NewFromConfig(cfg) },
		ServiceS3:             func(cfg aws.Config) any { return s3.NewFromConfig(cfg) },
		ServiceRDS:            func(cfg aws.Config) any { return rds.NewFromConfig(cfg) },
		ServiceIAM:            func(cfg aws.Config) any { return iam.NewFromConfig(cfg) },
		ServiceELBv2:          func(cfg aws.Config) any { return elbv2.NewFromConfig(cfg) },
	}
}
