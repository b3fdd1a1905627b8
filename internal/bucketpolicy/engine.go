package bucketpolicy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/providers/aws/common"
)

var (
	// ErrPolicyFetch wraps every bucket policy read failure other than a
	// missing policy.
	ErrPolicyFetch = errors.New("bucket policy fetch failed")

	// ErrPolicyWrite wraps PutBucketPolicy failures.
	ErrPolicyWrite = errors.New("bucket policy write failed")
)

// codeNoSuchBucketPolicy is the S3 error code for a bucket without a policy.
const codeNoSuchBucketPolicy = "NoSuchBucketPolicy"

// FetchStatus discriminates a FetchResult.
type FetchStatus int

const (
	Found FetchStatus = iota
	NotFound
)

func (s FetchStatus) String() string {
	if s == NotFound {
		return "not-found"
	}
	return "found"
}

// FetchResult is the outcome of reading a bucket policy. Document is only
// meaningful when Status is Found.
type FetchResult struct {
	Status   FetchStatus
	Document Document
}

// Engine reads and writes the central bucket policy.
type Engine struct {
	client common.S3PolicyClient
	log    *zap.Logger
}

// NewEngine returns an Engine that talks to S3 through client.
func NewEngine(client common.S3PolicyClient, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{client: client, log: log}
}

// Fetch reads the policy attached to bucket. A bucket without a policy is
// reported as NotFound rather than as an error.
func (e *Engine) Fetch(ctx context.Context, bucket string) (FetchResult, error) {
	out, err := e.client.GetBucketPolicy(ctx, &s3svc.GetBucketPolicyInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		if common.HasErrorCode(err, codeNoSuchBucketPolicy) {
			e.log.Debug("bucket has no policy", zap.String("bucket", bucket))
			return FetchResult{Status: NotFound}, nil
		}
		return FetchResult{}, fmt.Errorf("%w: get bucket policy %s: %w", ErrPolicyFetch, bucket, err)
	}

	body := strings.TrimSpace(aws.ToString(out.Policy))
	if body == "" {
		return FetchResult{Status: NotFound}, nil
	}

	doc, err := Parse([]byte(body))
	if err != nil {
		return FetchResult{}, fmt.Errorf("%w: parse policy of %s: %w", ErrPolicyFetch, bucket, err)
	}
	e.log.Debug("fetched bucket policy",
		zap.String("bucket", bucket),
		zap.Int("statements", len(doc.Statements)),
	)
	return FetchResult{Status: Found, Document: doc}, nil
}

// EnsurePolicy returns the bucket's current policy. When the bucket has none,
// the default document is written first and bootstrapped is true.
func (e *Engine) EnsurePolicy(ctx context.Context, bucket, loggingAccountID string) (doc Document, bootstrapped bool, err error) {
	res, err := e.Fetch(ctx, bucket)
	if err != nil {
		return Document{}, false, err
	}
	if res.Status == Found {
		return res.Document, false, nil
	}

	doc = DefaultDocument(bucket, loggingAccountID)
	e.log.Info("bootstrapping default bucket policy", zap.String("bucket", bucket))
	if err := e.Commit(ctx, bucket, doc); err != nil {
		return Document{}, false, err
	}
	return doc, true, nil
}

// Commit replaces the bucket's policy with doc.
func (e *Engine) Commit(ctx context.Context, bucket string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode policy: %w", ErrPolicyWrite, err)
	}
	if _, err := e.client.PutBucketPolicy(ctx, &s3svc.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(string(body)),
	}); err != nil {
		return fmt.Errorf("%w: put bucket policy %s: %w", ErrPolicyWrite, bucket, err)
	}
	e.log.Info("bucket policy written",
		zap.String("bucket", bucket),
		zap.Int("statements", len(doc.Statements)),
	)
	return nil
}
