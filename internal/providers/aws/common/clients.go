package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	cloudtrailsvc "github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	orgsvc "github.com/aws/aws-sdk-go-v2/service/organizations"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations used by this project. Using narrow
// interfaces instead of the full SDK clients makes mocking in unit tests
// trivial: create a struct that satisfies the interface and return canned data.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used by the loader and the
// cross-account credential broker.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)

	AssumeRole(
		ctx context.Context,
		params *sts.AssumeRoleInput,
		optFns ...func(*sts.Options),
	) (*sts.AssumeRoleOutput, error)
}

// EC2RegionClient is the subset of EC2 operations used for region discovery.
type EC2RegionClient interface {
	DescribeRegions(
		ctx context.Context,
		params *ec2.DescribeRegionsInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeRegionsOutput, error)
}

// OrganizationsClient covers account listing. It is exactly the SDK's
// ListAccountsAPIClient so the SDK paginator can be used directly.
type OrganizationsClient interface {
	orgsvc.ListAccountsAPIClient
}

// S3PolicyClient covers the bucket-policy read and full-document replace
// used on the central logging bucket.
type S3PolicyClient interface {
	GetBucketPolicy(
		ctx context.Context,
		params *s3svc.GetBucketPolicyInput,
		optFns ...func(*s3svc.Options),
	) (*s3svc.GetBucketPolicyOutput, error)

	PutBucketPolicy(
		ctx context.Context,
		params *s3svc.PutBucketPolicyInput,
		optFns ...func(*s3svc.Options),
	) (*s3svc.PutBucketPolicyOutput, error)
}

// CloudTrailClient covers trail lookup, creation and logging control.
type CloudTrailClient interface {
	DescribeTrails(
		ctx context.Context,
		params *cloudtrailsvc.DescribeTrailsInput,
		optFns ...func(*cloudtrailsvc.Options),
	) (*cloudtrailsvc.DescribeTrailsOutput, error)

	CreateTrail(
		ctx context.Context,
		params *cloudtrailsvc.CreateTrailInput,
		optFns ...func(*cloudtrailsvc.Options),
	) (*cloudtrailsvc.CreateTrailOutput, error)

	StartLogging(
		ctx context.Context,
		params *cloudtrailsvc.StartLoggingInput,
		optFns ...func(*cloudtrailsvc.Options),
	) (*cloudtrailsvc.StartLoggingOutput, error)

	GetTrailStatus(
		ctx context.Context,
		params *cloudtrailsvc.GetTrailStatusInput,
		optFns ...func(*cloudtrailsvc.Options),
	) (*cloudtrailsvc.GetTrailStatusOutput, error)
}

// ---------------------------------------------------------------------------
// ClientSet and ClientFactory
// ---------------------------------------------------------------------------

// ClientSet holds fully initialised AWS service clients for one set of
// credentials. All fields are interfaces so they can be replaced with mocks in
// tests without importing the AWS SDK in test files.
type ClientSet struct {
	STS           STSClient
	EC2           EC2RegionClient
	Organizations OrganizationsClient
	S3            S3PolicyClient
	CloudTrail    CloudTrailClient
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject mock clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory. It constructs real AWS SDK
// clients from cfg. Organizations is always pointed at us-east-1 because its
// API endpoint is global and only served from that region.
func NewClientSet(cfg aws.Config) *ClientSet {
	orgCfg := cfg
	orgCfg.Region = "us-east-1"

	return &ClientSet{
		STS:           sts.NewFromConfig(cfg),
		EC2:           ec2.NewFromConfig(cfg),
		Organizations: orgsvc.NewFromConfig(orgCfg),
		S3:            s3svc.NewFromConfig(cfg),
		CloudTrail:    cloudtrailsvc.NewFromConfig(cfg),
	}
}
