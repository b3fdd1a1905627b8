package common

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTS struct {
	account *string
	err     error
}

func (f *fakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: f.account}, nil
}

func (f *fakeSTS) AssumeRole(_ context.Context, _ *sts.AssumeRoleInput, _ ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	return nil, errors.New("not used")
}

type fakeEC2 struct {
	regions []string
	err     error
}

func (f *fakeEC2) DescribeRegions(_ context.Context, _ *ec2.DescribeRegionsInput, _ ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &ec2.DescribeRegionsOutput{}
	for _, r := range f.regions {
		out.Regions = append(out.Regions, ec2types.Region{RegionName: aws.String(r)})
	}
	out.Regions = append(out.Regions, ec2types.Region{})
	return out, nil
}

func TestResolveAccountID(t *testing.T) {
	id, err := ResolveAccountID(context.Background(), &fakeSTS{account: aws.String("123456789012")})
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id)
}

func TestResolveAccountID_NilAccount(t *testing.T) {
	_, err := ResolveAccountID(context.Background(), &fakeSTS{})
	require.Error(t, err)
}

func TestResolveAccountID_Error(t *testing.T) {
	_, err := ResolveAccountID(context.Background(), &fakeSTS{err: errors.New("expired token")})
	require.ErrorContains(t, err, "expired token")
}

func TestGetActiveRegions_SkipsNilNames(t *testing.T) {
	p := NewDefaultAWSClientProviderWithFactory(nil)
	cfg := &ProfileConfig{
		ProfileName: "mgmt",
		Clients:     &ClientSet{EC2: &fakeEC2{regions: []string{"us-east-1", "eu-west-1"}}},
	}

	regions, err := p.GetActiveRegions(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, regions)
}

func TestGetActiveRegions_Error(t *testing.T) {
	p := NewDefaultAWSClientProviderWithFactory(nil)
	cfg := &ProfileConfig{
		ProfileName: "mgmt",
		Clients:     &ClientSet{EC2: &fakeEC2{err: errors.New("boom")}},
	}

	_, err := p.GetActiveRegions(context.Background(), cfg)
	require.ErrorContains(t, err, `profile "mgmt"`)
}

func TestConfigWithCredentials_DoesNotMutateProfile(t *testing.T) {
	p := NewDefaultAWSClientProvider()
	base := &ProfileConfig{Config: aws.Config{Region: "eu-central-1"}}
	creds := credentials.NewStaticCredentialsProvider("AKID", "SECRET", "TOKEN")

	scoped := p.ConfigWithCredentials(base, creds)

	assert.Equal(t, "eu-central-1", scoped.Region)
	assert.NotNil(t, scoped.Credentials)
	assert.Nil(t, base.Config.Credentials)
}

func TestHasErrorCode(t *testing.T) {
	err := &smithy.GenericAPIError{Code: "NoSuchBucketPolicy", Message: "The bucket policy does not exist"}
	wrapped := errors.Join(errors.New("context"), err)

	assert.Equal(t, "NoSuchBucketPolicy", ErrorCode(wrapped))
	assert.True(t, HasErrorCode(wrapped, "AccessDenied", "NoSuchBucketPolicy"))
	assert.False(t, HasErrorCode(wrapped, "AccessDenied"))
	assert.False(t, HasErrorCode(errors.New("plain"), "AccessDenied"))
	assert.Equal(t, "", ErrorCode(nil))
}

func TestProfileDisplayName(t *testing.T) {
	assert.Equal(t, "default", profileDisplayName(""))
	assert.Equal(t, "prod", profileDisplayName("prod"))
}
