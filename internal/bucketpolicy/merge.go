package bucketpolicy

import (
	"strings"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
)

const (
	// PolicyVersion is the IAM policy language version written to new
	// documents.
	PolicyVersion = "2012-10-17"

	// CloudTrailService is the service principal CloudTrail writes as.
	CloudTrailService = "cloudtrail.amazonaws.com"

	// SidPrefix marks statements owned by this tool. Statements without it
	// are never inspected or modified.
	SidPrefix = "CloudTrail_"

	SidAclCheck = "AllowCloudTrailAclCheck"
	SidWrite    = "AllowCloudTrailWrite"

	ActionGetBucketAcl = "s3:GetBucketAcl"
	ActionPutObject    = "s3:PutObject"
)

// Grant identifies one of the two per-account permissions.
type Grant string

const (
	GrantPutObject    Grant = "PutObject"
	GrantGetBucketAcl Grant = "GetBucketAcl"
)

// Sid returns the statement id for a per-account grant, e.g.
// CloudTrail_PutObject_111111111111.
func Sid(g Grant, accountID string) string {
	return SidPrefix + string(g) + "_" + accountID
}

// IsManaged reports whether sid belongs to a statement this tool appends.
func IsManaged(sid string) bool {
	return strings.HasPrefix(sid, SidPrefix)
}

// BucketARN returns the ARN of bucket in the aws partition.
func BucketARN(bucket string) string {
	return "arn:aws:s3:::" + bucket
}

// LogPrefixARN returns the object ARN pattern CloudTrail writes accountID's
// logs under.
func LogPrefixARN(bucket, accountID string) string {
	return BucketARN(bucket) + "/AWSLogs/" + accountID + "/*"
}

func cloudTrailStatement(sid, action, resource string) Statement {
	return Statement{
		Sid:       sid,
		Effect:    "Allow",
		Principal: ServicePrincipal(CloudTrailService),
		Action:    StringList{action},
		Resource:  StringList{resource},
	}
}

// DefaultDocument is the policy written when the bucket has none: the ACL
// check on the bucket and write access under the logging account's prefix.
func DefaultDocument(bucket, loggingAccountID string) Document {
	return Document{
		Version: PolicyVersion,
		Statements: []Statement{
			cloudTrailStatement(SidAclCheck, ActionGetBucketAcl, BucketARN(bucket)),
			cloudTrailStatement(SidWrite, ActionPutObject, LogPrefixARN(bucket, loggingAccountID)),
		},
	}
}

// MergeResult describes what MergeAccounts changed.
type MergeResult struct {
	// Added lists appended sids in append order.
	Added []string
	// Skipped lists accounts whose grants were both already present.
	Skipped []string
}

// Changed reports whether the merge appended anything.
func (r MergeResult) Changed() bool { return len(r.Added) > 0 }

// MergeAccounts returns a copy of doc with PutObject and GetBucketAcl
// statements appended for every account that does not already have them.
// Existing statements keep their order and content. doc is not modified.
// Merging the same accounts twice appends nothing the second time.
func MergeAccounts(doc Document, bucket string, accounts []models.Account) (Document, MergeResult) {
	out := doc.Clone()

	present := make(map[string]struct{})
	for _, s := range out.Statements {
		if IsManaged(s.Sid) {
			present[s.Sid] = struct{}{}
		}
	}

	var res MergeResult
	for _, acct := range accounts {
		wanted := []Statement{
			cloudTrailStatement(Sid(GrantPutObject, acct.ID), ActionPutObject, LogPrefixARN(bucket, acct.ID)),
			cloudTrailStatement(Sid(GrantGetBucketAcl, acct.ID), ActionGetBucketAcl, BucketARN(bucket)),
		}
		added := 0
		for _, st := range wanted {
			if _, ok := present[st.Sid]; ok {
				continue
			}
			out.Statements = append(out.Statements, st)
			present[st.Sid] = struct{}{}
			res.Added = append(res.Added, st.Sid)
			added++
		}
		if added == 0 {
			res.Skipped = append(res.Skipped, acct.ID)
		}
	}
	return out, res
}
