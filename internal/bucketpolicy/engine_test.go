package bucketpolicy

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
)

type fakeS3 struct {
	policy *string
	getErr error
	putErr error
	puts   []string
}

func (f *fakeS3) GetBucketPolicy(_ context.Context, _ *s3svc.GetBucketPolicyInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3svc.GetBucketPolicyOutput{Policy: f.policy}, nil
}

func (f *fakeS3) PutBucketPolicy(_ context.Context, in *s3svc.PutBucketPolicyInput, _ ...func(*s3svc.Options)) (*s3svc.PutBucketPolicyOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.puts = append(f.puts, aws.ToString(in.Policy))
	f.policy = in.Policy
	return &s3svc.PutBucketPolicyOutput{}, nil
}

func noPolicy() error {
	return &smithy.GenericAPIError{Code: "NoSuchBucketPolicy", Message: "The bucket policy does not exist"}
}

func TestFetch_NotFound(t *testing.T) {
	e := NewEngine(&fakeS3{getErr: noPolicy()}, zap.NewNop())

	res, err := e.Fetch(context.Background(), bucket)
	require.NoError(t, err)
	assert.Equal(t, NotFound, res.Status)
}

func TestFetch_EmptyBodyIsNotFound(t *testing.T) {
	e := NewEngine(&fakeS3{policy: aws.String("  ")}, zap.NewNop())

	res, err := e.Fetch(context.Background(), bucket)
	require.NoError(t, err)
	assert.Equal(t, NotFound, res.Status)
}

func TestFetch_Found(t *testing.T) {
	e := NewEngine(&fakeS3{policy: aws.String(foreignPolicy)}, zap.NewNop())

	res, err := e.Fetch(context.Background(), bucket)
	require.NoError(t, err)
	assert.Equal(t, Found, res.Status)
	assert.Len(t, res.Document.Statements, 2)
}

func TestFetch_OtherErrors(t *testing.T) {
	tests := []struct {
		name string
		s3   *fakeS3
	}{
		{"access denied", &fakeS3{getErr: &smithy.GenericAPIError{Code: "AccessDenied"}}},
		{"no such bucket", &fakeS3{getErr: &smithy.GenericAPIError{Code: "NoSuchBucket"}}},
		{"transport", &fakeS3{getErr: errors.New("connection reset")}},
		{"malformed body", &fakeS3{policy: aws.String(`{"Statement":[]}`)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEngine(tc.s3, nil).Fetch(context.Background(), bucket)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPolicyFetch)
		})
	}
}

func TestEnsurePolicy_Bootstraps(t *testing.T) {
	s3 := &fakeS3{getErr: noPolicy()}
	e := NewEngine(s3, zap.NewNop())

	doc, bootstrapped, err := e.EnsurePolicy(context.Background(), bucket, "222222222222")
	require.NoError(t, err)
	assert.True(t, bootstrapped)
	assert.Equal(t, []string{SidAclCheck, SidWrite}, doc.Sids())

	require.Len(t, s3.puts, 1)
	written, err := Parse([]byte(s3.puts[0]))
	require.NoError(t, err)
	assert.Equal(t, []string{SidAclCheck, SidWrite}, written.Sids())
}

func TestEnsurePolicy_ExistingPolicyUntouched(t *testing.T) {
	s3 := &fakeS3{policy: aws.String(foreignPolicy)}
	e := NewEngine(s3, zap.NewNop())

	doc, bootstrapped, err := e.EnsurePolicy(context.Background(), bucket, "222222222222")
	require.NoError(t, err)
	assert.False(t, bootstrapped)
	assert.Len(t, doc.Statements, 2)
	assert.Empty(t, s3.puts)
}

func TestEnsurePolicy_BootstrapWriteFails(t *testing.T) {
	s3 := &fakeS3{getErr: noPolicy(), putErr: &smithy.GenericAPIError{Code: "MalformedPolicy"}}

	_, _, err := NewEngine(s3, zap.NewNop()).EnsurePolicy(context.Background(), bucket, "222222222222")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPolicyWrite)
}

func TestCommit_WritesFullDocument(t *testing.T) {
	s3 := &fakeS3{policy: aws.String(foreignPolicy)}
	e := NewEngine(s3, zap.NewNop())
	ctx := context.Background()

	res, err := e.Fetch(ctx, bucket)
	require.NoError(t, err)
	merged, _ := MergeAccounts(res.Document, bucket, []models.Account{{ID: "111111111111", Name: "a", Status: models.StatusActive}})
	require.NoError(t, e.Commit(ctx, bucket, merged))

	require.Len(t, s3.puts, 1)
	back, err := Parse([]byte(s3.puts[0]))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"DenyInsecureTransport",
		"",
		"CloudTrail_PutObject_111111111111",
		"CloudTrail_GetBucketAcl_111111111111",
	}, back.Sids())
}

func TestCommit_Failure(t *testing.T) {
	s3 := &fakeS3{putErr: errors.New("throttled")}

	err := NewEngine(s3, nil).Commit(context.Background(), bucket, DefaultDocument(bucket, "1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPolicyWrite)
}
