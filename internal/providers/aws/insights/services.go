package insights

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbv2svc "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
)

// summarizeEC2 counts all instances and the subset in the running state.
func summarizeEC2(ctx context.Context, clients *common.ClientCache) (map[string]int, error) {
	client, err := common.Client[common.EC2Client](clients, common.ServiceEC2)
	if err != nil {
		return nil, err
	}

	total, running := 0, 0
	paginator := ec2svc.NewDescribeInstancesPaginator(client, &ec2svc.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeInstances page: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				total++
				if inst.State != nil && inst.State.Name == ec2types.InstanceStateNameRunning {
					running++
				}
			}
		}
	}

	return map[string]int{
		"total_instances":   total,
		"running_instances": running,
	}, nil
}

// summarizeS3 counts the buckets owned by the account.
func summarizeS3(ctx context.Context, clients *common.ClientCache) (map[string]int, error) {
	client, err := common.Client[common.S3Client](clients, common.ServiceS3)
	if err != nil {
		return nil, err
	}

	count := 0
	var token *string
	for {
		out, err := client.ListBuckets(ctx, &s3svc.ListBucketsInput{ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("list S3 buckets: %w", err)
		}
		count += len(out.Buckets)
		if aws.ToString(out.ContinuationToken) == "" {
			break
		}
		token = out.ContinuationToken
	}

	return map[string]int{"bucket_count": count}, nil
}

// summarizeRDS counts DB instances and the subset whose status is "available".
func summarizeRDS(ctx context.Context, clients *common.ClientCache) (map[string]int, error) {
	client, err := common.Client[common.RDSClient](clients, common.ServiceRDS)
	if err != nil {
		return nil, err
	}

	total, available := 0, 0
	paginator := rdssvc.NewDescribeDBInstancesPaginator(client, &rdssvc.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeDBInstances page: %w", err)
		}
		for _, db := range page.DBInstances {
			total++
			if aws.ToString(db.DBInstanceStatus) == "available" {
				available++
			}
		}
	}

	return map[string]int{
		"total_db_instances":     total,
		"available_db_instances": available,
	}, nil
}

// summarizeIAM counts IAM users. The ListUsers paginator handles accounts
// with many users.
func summarizeIAM(ctx context.Context, clients *common.ClientCache) (map[string]int, error) {
	client, err := common.Client[common.IAMClient](clients, common.ServiceIAM)
	if err != nil {
		return nil, err
	}

	count := 0
	paginator := iamsvc.NewListUsersPaginator(client, &iamsvc.ListUsersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list IAM users: %w", err)
		}
		count += len(page.Users)
	}

	return map[string]int{"user_count": count}, nil
}

// summarizeELB counts every Elastic Load Balancing v2 load balancer.
func summarizeELB(ctx context.Context, clients *common.ClientCache) (map[string]int, error) {
	client, err := common.Client[common.ELBv2Client](clients, common.ServiceELBv2)
	if err != nil {
		return nil, err
	}

	count := 0
	var marker *string
	for {
		out, err := client.DescribeLoadBalancers(ctx, &elbv2svc.DescribeLoadBalancersInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("DescribeLoadBalancers: %w", err)
		}
		count += len(out.LoadBalancers)
		if aws.ToString(out.NextMarker) == "" {
			break
		}
		marker = out.NextMarker
	}

	return map[string]int{"load_balancer_count": count}, nil
}
