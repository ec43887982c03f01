package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
)

// Role defaults.
const (
	DefaultRoleName   = "mcp-lambda-role"
	DefaultPolicyName = "mcp-lambda-policy"
)

// lambdaTrustPolicy lets the Lambda service assume the role.
const lambdaTrustPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"Service": "lambda.amazonaws.com"},
    "Action": "sts:AssumeRole"
  }]
}`

// DefaultPolicyDocument grants the read-only calls the dispatcher makes plus
// CloudWatch Logs for the function itself.
const DefaultPolicyDocument = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Action": [
        "ce:GetCostAndUsage",
        "cloudwatch:GetMetricStatistics",
        "ec2:DescribeInstances",
        "s3:ListAllMyBuckets",
        "rds:DescribeDBInstances",
        "iam:ListUsers",
        "elasticloadbalancing:DescribeLoadBalancers",
        "bedrock:InvokeModel"
      ],
      "Resource": "*"
    },
    {
      "Effect": "Allow",
      "Action": [
        "logs:CreateLogGroup",
        "logs:CreateLogStream",
        "logs:PutLogEvents"
      ],
      "Resource": "*"
    }
  ]
}`

// RoleOptions configures EnsureRole. Empty fields take the defaults.
type RoleOptions struct {
	RoleName       string
	PolicyName     string
	PolicyDocument string
}

func (o *RoleOptions) applyDefaults() {
	if o.RoleName == "" {
		o.RoleName = DefaultRoleName
	}
	if o.PolicyName == "" {
		o.PolicyName = DefaultPolicyName
	}
	if o.PolicyDocument == "" {
		o.PolicyDocument = DefaultPolicyDocument
	}
}

// EnsureRole creates the Lambda execution role (an existing role is reused),
// writes its inline policy and returns the role ARN.
func EnsureRole(ctx context.Context, client IAMAPI, opts RoleOptions) (string, error) {
	opts.applyDefaults()

	_, err := client.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(opts.RoleName),
		AssumeRolePolicyDocument: aws.String(lambdaTrustPolicy),
		Description:              aws.String("Execution role for the aws-mcp dispatcher"),
	})
	var exists *iamtypes.EntityAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return "", fmt.Errorf("create role %s: %w", opts.RoleName, err)
	}

	if _, err := client.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(opts.RoleName),
		PolicyName:     aws.String(opts.PolicyName),
		PolicyDocument: aws.String(opts.PolicyDocument),
	}); err != nil {
		return "", fmt.Errorf("put role policy %s: %w", opts.PolicyName, err)
	}

	out, err := client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(opts.RoleName)})
	if err != nil {
		return "", fmt.Errorf("get role %s: %w", opts.RoleName, err)
	}
	if out.Role == nil || out.Role.Arn == nil {
		return "", fmt.Errorf("get role %s: response has no ARN", opts.RoleName)
	}
	return aws.ToString(out.Role.Arn), nil
}
