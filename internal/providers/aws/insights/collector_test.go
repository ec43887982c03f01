package insights

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbv2svc "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeEC2 struct {
	pages []*ec2svc.DescribeInstancesOutput
	err   error
	call  int
}

func (f *fakeEC2) DescribeInstances(_ context.Context, _ *ec2svc.DescribeInstancesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeInstancesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.call]
	f.call++
	return page, nil
}

type fakeS3 struct {
	buckets int
	err     error
}

func (f *fakeS3) ListBuckets(_ context.Context, _ *s3svc.ListBucketsInput, _ ...func(*s3svc.Options)) (*s3svc.ListBucketsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3svc.ListBucketsOutput{Buckets: make([]s3types.Bucket, f.buckets)}, nil
}

type fakeRDS struct {
	statuses []string
}

func (f *fakeRDS) DescribeDBInstances(_ context.Context, _ *rdssvc.DescribeDBInstancesInput, _ ...func(*rdssvc.Options)) (*rdssvc.DescribeDBInstancesOutput, error) {
	out := &rdssvc.DescribeDBInstancesOutput{}
	for _, s := range f.statuses {
		out.DBInstances = append(out.DBInstances, rdstypes.DBInstance{DBInstanceStatus: aws.String(s)})
	}
	return out, nil
}

type fakeIAM struct {
	users int
}

func (f *fakeIAM) ListUsers(_ context.Context, _ *iamsvc.ListUsersInput, _ ...func(*iamsvc.Options)) (*iamsvc.ListUsersOutput, error) {
	return &iamsvc.ListUsersOutput{Users: make([]iamtypes.User, f.users)}, nil
}

type fakeELB struct {
	pages [][]elbv2types.LoadBalancer
	call  int
}

func (f *fakeELB) DescribeLoadBalancers(_ context.Context, _ *elbv2svc.DescribeLoadBalancersInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DescribeLoadBalancersOutput, error) {
	out := &elbv2svc.DescribeLoadBalancersOutput{LoadBalancers: f.pages[f.call]}
	f.call++
	if f.call < len(f.pages) {
		out.NextMarker = aws.String("next")
	}
	return out, nil
}

func instance(state ec2types.InstanceStateName) ec2types.Instance {
	return ec2types.Instance{State: &ec2types.InstanceState{Name: state}}
}

// newCache wires the given fakes into a ClientCache. A nil entry leaves the
// service unregistered.
func newCache(clients map[string]any) *common.ClientCache {
	builders := make(map[string]common.ClientBuilder, len(clients))
	for name, c := range clients {
		c := c
		builders[name] = func(aws.Config) any { return c }
	}
	return common.NewClientCacheWithBuilders(aws.Config{}, builders)
}

// ── Collect ──────────────────────────────────────────────────────────────────

func TestCollect_EC2CountsRunning(t *testing.T) {
	ec2 := &fakeEC2{pages: []*ec2svc.DescribeInstancesOutput{{
		Reservations: []ec2types.Reservation{
			{Instances: []ec2types.Instance{instance(ec2types.InstanceStateNameRunning), instance(ec2types.InstanceStateNameStopped)}},
			{Instances: []ec2types.Instance{instance(ec2types.InstanceStateNameRunning)}},
		},
	}}}
	got := NewCollector(newCache(map[string]any{"ec2": ec2})).Collect(context.Background(), []string{"EC2"})

	entry, ok := got["EC2"]
	if !ok {
		t.Fatal("missing EC2 entry")
	}
	if entry.Failed() {
		t.Fatalf("EC2 failed: %s", entry.Error)
	}
	if entry.Counts["total_instances"] != 3 {
		t.Errorf("total_instances = %d; want 3", entry.Counts["total_instances"])
	}
	if entry.Counts["running_instances"] != 2 {
		t.Errorf("running_instances = %d; want 2", entry.Counts["running_instances"])
	}
}

func TestCollect_EC2FollowsPages(t *testing.T) {
	ec2 := &fakeEC2{pages: []*ec2svc.DescribeInstancesOutput{
		{
			Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{instance(ec2types.InstanceStateNameRunning)}}},
			NextToken:    aws.String("p2"),
		},
		{
			Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{instance(ec2types.InstanceStateNameRunning)}}},
		},
	}}
	got := NewCollector(newCache(map[string]any{"ec2": ec2})).Collect(context.Background(), []string{"EC2"})
	if got["EC2"].Counts["total_instances"] != 2 {
		t.Errorf("total_instances = %d; want 2 across pages", got["EC2"].Counts["total_instances"])
	}
}

func TestCollect_IsolatesFailures(t *testing.T) {
	cache := newCache(map[string]any{
		"ec2": &fakeEC2{err: errors.New("UnauthorizedOperation")},
		"s3":  &fakeS3{buckets: 4},
	})
	got := NewCollector(cache).Collect(context.Background(), []string{"EC2", "S3", "UNKNOWN_SERVICE"})

	if len(got) != 3 {
		t.Fatalf("entries = %d; want 3", len(got))
	}
	if !got["EC2"].Failed() || !strings.Contains(got["EC2"].Error, "UnauthorizedOperation") {
		t.Errorf("EC2 entry = %+v; want error containing UnauthorizedOperation", got["EC2"])
	}
	if got["S3"].Failed() || got["S3"].Counts["bucket_count"] != 4 {
		t.Errorf("S3 entry = %+v; want bucket_count 4", got["S3"])
	}
	if !got["UNKNOWN_SERVICE"].Failed() {
		t.Error("unknown service must produce an error entry")
	}
}

func TestCollect_KnownClientWithoutSummary(t *testing.T) {
	cache := newCache(map[string]any{"cloudwatch": struct{}{}})
	got := NewCollector(cache).Collect(context.Background(), []string{"CloudWatch"})
	if !got["CloudWatch"].Failed() {
		t.Fatal("service with no summary must produce an error entry")
	}
	if !strings.Contains(got["CloudWatch"].Error, `no insight summary for service "cloudwatch"`) {
		t.Errorf("Error = %q", got["CloudWatch"].Error)
	}
}

func TestCollect_RDSIAMAndELB(t *testing.T) {
	cache := newCache(map[string]any{
		"rds":   &fakeRDS{statuses: []string{"available", "stopped", "available"}},
		"iam":   &fakeIAM{users: 5},
		"elbv2": &fakeELB{pages: [][]elbv2types.LoadBalancer{make([]elbv2types.LoadBalancer, 2), make([]elbv2types.LoadBalancer, 1)}},
	})
	got := NewCollector(cache).Collect(context.Background(), []string{"RDS", "IAM", "ELBv2"})

	if got["RDS"].Counts["total_db_instances"] != 3 || got["RDS"].Counts["available_db_instances"] != 2 {
		t.Errorf("RDS = %+v; want total 3 available 2", got["RDS"].Counts)
	}
	if got["IAM"].Counts["user_count"] != 5 {
		t.Errorf("IAM user_count = %d; want 5", got["IAM"].Counts["user_count"])
	}
	if got["ELBv2"].Counts["load_balancer_count"] != 3 {
		t.Errorf("ELBv2 load_balancer_count = %d; want 3", got["ELBv2"].Counts["load_balancer_count"])
	}
}

func TestCollect_EmptyServices(t *testing.T) {
	got := NewCollector(newCache(nil)).Collect(context.Background(), nil)
	if got == nil || len(got) != 0 {
		t.Errorf("got %v; want empty non-nil map", got)
	}
}

func TestCollect_ELBSharesTheELBv2Client(t *testing.T) {
	built := 0
	elb := &fakeELB{pages: [][]elbv2types.LoadBalancer{make([]elbv2types.LoadBalancer, 2)}}
	cache := common.NewClientCacheWithBuilders(aws.Config{}, map[string]common.ClientBuilder{
		common.ServiceELBv2: func(aws.Config) any {
			built++
			return elb
		},
	})
	got := NewCollector(cache).Collect(context.Background(), []string{"ELB"})

	if got["ELB"].Failed() || got["ELB"].Counts["load_balancer_count"] != 2 {
		t.Errorf("ELB = %+v; want load_balancer_count 2", got["ELB"])
	}
	if built != 1 || cache.Len() != 1 {
		t.Errorf("built %d clients, cached %d; want one elbv2 client", built, cache.Len())
	}
}

// orderedS3 and orderedEC2 append their service name to calls when invoked.
type orderedS3 struct {
	fakeS3
	calls *[]string
}

func (f *orderedS3) ListBuckets(ctx context.Context, in *s3svc.ListBucketsInput, opts ...func(*s3svc.Options)) (*s3svc.ListBucketsOutput, error) {
	*f.calls = append(*f.calls, "s3")
	return f.fakeS3.ListBuckets(ctx, in, opts...)
}

type orderedEC2 struct {
	fakeEC2
	calls *[]string
}

func (f *orderedEC2) DescribeInstances(ctx context.Context, in *ec2svc.DescribeInstancesInput, opts ...func(*ec2svc.Options)) (*ec2svc.DescribeInstancesOutput, error) {
	*f.calls = append(*f.calls, "ec2")
	return f.fakeEC2.DescribeInstances(ctx, in, opts...)
}

func TestCollect_RunsInRequestOrder(t *testing.T) {
	var calls []string
	cache := newCache(map[string]any{
		"s3":  &orderedS3{fakeS3: fakeS3{buckets: 1}, calls: &calls},
		"ec2": &orderedEC2{fakeEC2: fakeEC2{pages: []*ec2svc.DescribeInstancesOutput{{}}}, calls: &calls},
	})
	NewCollector(cache).Collect(context.Background(), []string{"S3", "EC2", "S3"})

	want := []string{"s3", "ec2", "s3"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v; want %v", calls, want)
	}
}
