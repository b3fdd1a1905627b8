// Package awsassume exchanges the caller's credentials for short-lived
// credentials in a member account via sts:AssumeRole.
package awsassume

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/providers/aws/common"
)

// DefaultSessionName is the RoleSessionName recorded in the member account's
// own CloudTrail for every assumed session.
const DefaultSessionName = "orgtrail-session"

// ErrAssumeRoleDenied is returned when the target role does not exist or does
// not trust the caller.
var ErrAssumeRoleDenied = errors.New("assume role denied")

// deniedCodes are the STS error codes that mean the role cannot be assumed by
// this caller, as opposed to transient or configuration failures.
var deniedCodes = []string{"AccessDenied", "AccessDeniedException", "NoSuchEntity"}

// ScopedCredentials are temporary credentials for one member account.
type ScopedCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expires         time.Time
}

// Provider returns a static credentials provider for use in an aws.Config.
func (c ScopedCredentials) Provider() aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
}

// Broker performs role assumption. It keeps no credentials between calls:
// each Assume issues a fresh STS exchange.
type Broker struct {
	client      common.STSClient
	sessionName string
}

// NewBroker returns a Broker that assumes roles using client. An empty
// sessionName selects DefaultSessionName.
func NewBroker(client common.STSClient, sessionName string) *Broker {
	if sessionName == "" {
		sessionName = DefaultSessionName
	}
	return &Broker{client: client, sessionName: sessionName}
}

// RoleARN builds the ARN of roleName in accountID.
func RoleARN(accountID, roleName string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, roleName)
}

// Assume exchanges the broker's credentials for credentials scoped to
// roleName in accountID.
func (b *Broker) Assume(ctx context.Context, accountID, roleName string) (ScopedCredentials, error) {
	arn := RoleARN(accountID, roleName)
	out, err := b.client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(arn),
		RoleSessionName: aws.String(b.sessionName),
	})
	if err != nil {
		if common.HasErrorCode(err, deniedCodes...) {
			return ScopedCredentials{}, fmt.Errorf("%w: %s: %w", ErrAssumeRoleDenied, arn, err)
		}
		return ScopedCredentials{}, fmt.Errorf("assume role %s: %w", arn, err)
	}
	if out.Credentials == nil {
		return ScopedCredentials{}, fmt.Errorf("assume role %s: STS returned no credentials", arn)
	}

	return ScopedCredentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Expires:         aws.ToTime(out.Credentials.Expiration),
	}, nil
}
