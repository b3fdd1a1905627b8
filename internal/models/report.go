package models

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// CredentialSource records which identity was used to reach an account.
type CredentialSource string

const (
	// CredentialsManagement means the management profile's own credentials.
	CredentialsManagement CredentialSource = "management"
	// CredentialsAssumed means short-lived credentials from sts:AssumeRole.
	CredentialsAssumed CredentialSource = "assumed"
)

// AccountOutcome is the per-account result of trail provisioning (or of a
// read-only trail inspection during a dry run). Err is nil on success.
type AccountOutcome struct {
	AccountID   string           `json:"account_id"`
	AccountName string           `json:"account_name,omitempty"`
	Credentials CredentialSource `json:"credentials"`
	Trail       Trail            `json:"trail"`
	State       TrailState       `json:"state"`
	Err         error            `json:"-"`
	Error       string           `json:"error,omitempty"`
}

// Fail records err on the outcome, keeping the JSON-visible message in sync.
func (o *AccountOutcome) Fail(err error) {
	o.Err = err
	if err != nil {
		o.Error = err.Error()
	}
}

// PolicyChange summarises what the run did (or would do) to the logging
// bucket policy.
type PolicyChange struct {
	// Bootstrapped is true when the bucket had no policy and the default
	// two-statement document was written (or, in a plan, would be).
	Bootstrapped bool `json:"bootstrapped"`

	// AddedSids lists the CloudTrail_ statements appended by the merge.
	AddedSids []string `json:"added_sids"`

	// SkippedAccounts lists accounts whose statements were already present.
	SkippedAccounts []string `json:"skipped_accounts"`

	// Committed is true when the merged document was written back.
	Committed bool `json:"committed"`
}

// ProvisionReport is the full result of one provisioning run.
type ProvisionReport struct {
	StartedAt           time.Time        `json:"started_at"`
	FinishedAt          time.Time        `json:"finished_at"`
	TrailName           string           `json:"trail_name"`
	BucketName          string           `json:"bucket_name"`
	LoggingAccountID    string           `json:"logging_account_id"`
	ManagementAccountID string           `json:"management_account_id"`
	Policy              PolicyChange     `json:"policy"`
	Outcomes            []AccountOutcome `json:"outcomes"`
}

// Succeeded returns the number of accounts that reached TrailExistsLogging
// without error.
func (r *ProvisionReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that carry an error, in processing order.
func (r *ProvisionReport) Failed() []AccountOutcome {
	var failed []AccountOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err aggregates every per-account failure into a single error. It returns
// nil when all accounts succeeded.
func (r *ProvisionReport) Err() error {
	var result *multierror.Error
	for _, o := range r.Failed() {
		result = multierror.Append(result, fmt.Errorf("account %s: %w", o.AccountID, o.Err))
	}
	return result.ErrorOrNil()
}

// ProvisionPlan is the read-only preview produced by a dry run: the targeted
// accounts, the policy change the merge would make, and the current trail
// state of every account.
type ProvisionPlan struct {
	TrailName        string           `json:"trail_name"`
	BucketName       string           `json:"bucket_name"`
	LoggingAccountID string           `json:"logging_account_id"`
	Accounts         []Account        `json:"accounts"`
	Policy           PolicyChange     `json:"policy"`
	TrailStates      []AccountOutcome `json:"trail_states"`
}
