package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cloudtrailsvc "github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	orgsvc "github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/providers/aws/common"
)

// ── AWS fakes ─────────────────────────────────────────────────────────────────

const (
	testMgmtID    = "999999999999"
	testLoggingID = "555555555555"
)

type fakeTrails struct {
	id        string
	trails    map[string]bool // name -> logging
	createErr error
	creates   int
	starts    int
}

func (f *fakeTrails) DescribeTrails(_ context.Context, in *cloudtrailsvc.DescribeTrailsInput, _ ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.DescribeTrailsOutput, error) {
	out := &cloudtrailsvc.DescribeTrailsOutput{}
	for name := range f.trails {
		if len(in.TrailNameList) > 0 && in.TrailNameList[0] != name {
			continue
		}
		out.TrailList = append(out.TrailList, cttypes.Trail{
			Name:               aws.String(name),
			TrailARN:           aws.String("arn:aws:cloudtrail:us-east-1:" + f.id + ":trail/" + name),
			IsMultiRegionTrail: aws.Bool(true),
		})
	}
	return out, nil
}

func (f *fakeTrails) CreateTrail(_ context.Context, in *cloudtrailsvc.CreateTrailInput, _ ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.CreateTrailOutput, error) {
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.trails[aws.ToString(in.Name)] = false
	return &cloudtrailsvc.CreateTrailOutput{Name: in.Name, TrailARN: aws.String("arn:" + aws.ToString(in.Name))}, nil
}

func (f *fakeTrails) StartLogging(_ context.Context, in *cloudtrailsvc.StartLoggingInput, _ ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.StartLoggingOutput, error) {
	f.starts++
	f.trails[aws.ToString(in.Name)] = true
	return &cloudtrailsvc.StartLoggingOutput{}, nil
}

func (f *fakeTrails) GetTrailStatus(_ context.Context, in *cloudtrailsvc.GetTrailStatusInput, _ ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.GetTrailStatusOutput, error) {
	return &cloudtrailsvc.GetTrailStatusOutput{IsLogging: aws.Bool(f.trails[aws.ToString(in.Name)])}, nil
}

type fakeBucket struct {
	policy *string
	puts   int
}

func (b *fakeBucket) GetBucketPolicy(_ context.Context, _ *s3svc.GetBucketPolicyInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error) {
	if b.policy == nil {
		return nil, &smithy.GenericAPIError{Code: "NoSuchBucketPolicy"}
	}
	return &s3svc.GetBucketPolicyOutput{Policy: b.policy}, nil
}

func (b *fakeBucket) PutBucketPolicy(_ context.Context, in *s3svc.PutBucketPolicyInput, _ ...func(*s3svc.Options)) (*s3svc.PutBucketPolicyOutput, error) {
	b.puts++
	b.policy = in.Policy
	return &s3svc.PutBucketPolicyOutput{}, nil
}

// fakeAWS implements common.AWSClientProvider, the STS and Organizations
// client interfaces, and a ClientFactory keyed by brokered access key.
type fakeAWS struct {
	org     []models.Account
	orgErr  error
	loadErr error
	regions []string
	regErr  error

	bucket *fakeBucket
	trails map[string]*fakeTrails
}

func newFakeAWS(org ...models.Account) *fakeAWS {
	f := &fakeAWS{
		org:     org,
		regions: []string{"us-east-1", "eu-west-1"},
		bucket:  &fakeBucket{},
		trails:  map[string]*fakeTrails{},
	}
	for _, id := range append([]string{testMgmtID, testLoggingID}, models.AccountIDs(org)...) {
		f.trails[id] = &fakeTrails{id: id, trails: map[string]bool{}}
	}
	return f
}

func (f *fakeAWS) clients(id string) *common.ClientSet {
	cs := &common.ClientSet{STS: f, Organizations: f, CloudTrail: f.trails[id]}
	if id == testLoggingID {
		cs.S3 = f.bucket
	}
	return cs
}

func (f *fakeAWS) LoadProfile(_ context.Context, profile, region string) (*common.ProfileConfig, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return &common.ProfileConfig{ProfileName: profile, AccountID: testMgmtID, Region: region, Clients: f.clients(testMgmtID)}, nil
}

func (f *fakeAWS) GetActiveRegions(_ context.Context, _ *common.ProfileConfig) ([]string, error) {
	return f.regions, f.regErr
}

func (f *fakeAWS) ConfigWithCredentials(cfg *common.ProfileConfig, creds aws.CredentialsProvider) aws.Config {
	return aws.Config{Region: cfg.Region, Credentials: creds}
}

func (f *fakeAWS) factory(cfg aws.Config) *common.ClientSet {
	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil {
		panic(err)
	}
	return f.clients(strings.TrimPrefix(creds.AccessKeyID, "ASIA"))
}

func (f *fakeAWS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Account: aws.String(testMgmtID)}, nil
}

func (f *fakeAWS) AssumeRole(_ context.Context, in *sts.AssumeRoleInput, _ ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	id := strings.Split(aws.ToString(in.RoleArn), ":")[4]
	return &sts.AssumeRoleOutput{Credentials: &ststypes.Credentials{
		AccessKeyId:     aws.String("ASIA" + id),
		SecretAccessKey: aws.String("secret"),
		SessionToken:    aws.String("token"),
		Expiration:      aws.Time(time.Now().Add(time.Hour)),
	}}, nil
}

func (f *fakeAWS) ListAccounts(_ context.Context, _ *orgsvc.ListAccountsInput, _ ...func(*orgsvc.Options)) (*orgsvc.ListAccountsOutput, error) {
	if f.orgErr != nil {
		return nil, f.orgErr
	}
	out := &orgsvc.ListAccountsOutput{}
	for _, a := range f.org {
		out.Accounts = append(out.Accounts, orgtypes.Account{
			Id:     aws.String(a.ID),
			Name:   aws.String(a.Name),
			Status: orgtypes.AccountStatus(a.Status),
		})
	}
	return out, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func acct(id string, status models.AccountStatus) models.Account {
	return models.Account{ID: id, Name: "acct-" + id, Status: status}
}

// writeSettings writes a valid settings file to a temp dir and returns its
// path.
func writeSettings(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app_settings.yaml")
	body := "LocalProfile: mgmt\n" +
		"Region: us-east-1\n" +
		"ManagementAccountId: \"" + testMgmtID + "\"\n" +
		"LoggingAccountId: \"" + testLoggingID + "\"\n" +
		"AccountCloudTrailName: org-trail\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command with args against f, feeding stdin, and
// returns stdout, stderr and the command error.
func execute(t *testing.T, f *fakeAWS, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmdWithDeps(deps{provider: f, factory: f.factory, stdin: strings.NewReader(stdin)})
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--no-color"))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

var errBoom = errors.New("boom")
