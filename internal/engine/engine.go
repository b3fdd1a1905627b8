package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
)

// ErrAborted is returned by Run when the operator declines the confirmation
// prompt. Nothing has been mutated when it is returned.
var ErrAborted = errors.New("provisioning aborted by operator")

// AccountSource selects where the target accounts come from.
type AccountSource string

const (
	// SourceDirectory lists accounts live from AWS Organizations.
	SourceDirectory AccountSource = "directory"
	// SourceFile reads a previously saved account list.
	SourceFile AccountSource = "file"
)

// ParseAccountSource converts a CLI value into an AccountSource. The empty
// string selects SourceDirectory.
func ParseAccountSource(s string) (AccountSource, error) {
	switch AccountSource(s) {
	case "", SourceDirectory:
		return SourceDirectory, nil
	case SourceFile:
		return SourceFile, nil
	}
	return "", fmt.Errorf("unknown account source %q (want %s or %s)", s, SourceDirectory, SourceFile)
}

// ReportFormat controls the CLI output format.
type ReportFormat string

const (
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatTable ReportFormat = "table"
)

// Options configures a single provisioning run.
// It is the sole per-run input to Engine.Run and Engine.Plan.
type Options struct {
	// Source selects the account directory or an account list file.
	Source AccountSource

	// Scope filters accounts by status. Applied after loading when Source
	// is SourceFile.
	Scope models.AccountScope

	// AccountsFile is read when Source is SourceFile. Defaults to the
	// configured accounts file.
	AccountsFile string

	// SaveAccountsTo, when set, persists the resolved accounts before any
	// mutation. Ignored by Plan.
	SaveAccountsTo string

	// AssumeYes skips the confirmation gate.
	AssumeYes bool

	// DryRun is informational for callers; Plan is always read-only and Run
	// always mutates.
	DryRun bool
}

// Summary is what the operator is asked to confirm before any mutation.
type Summary struct {
	TrailName           string
	BucketName          string
	LoggingAccountID    string
	ManagementAccountID string
	Accounts            []models.Account
}

// AccountIDs returns the ids of the targeted accounts in processing order.
func (s Summary) AccountIDs() []string {
	return models.AccountIDs(s.Accounts)
}

// Confirmer gates mutation on an operator decision.
type Confirmer interface {
	Confirm(ctx context.Context, s Summary) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, s Summary) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, s Summary) (bool, error) { return f(ctx, s) }

// Engine is the central orchestration interface. It sequences account
// resolution, the bucket policy merge and per-account trail provisioning.
//
// Engine must not call the AWS SDK directly; it delegates to the directory,
// broker, bucketpolicy and trail packages.
type Engine interface {
	ResolveAccounts(ctx context.Context, opts Options) ([]models.Account, error)
	Run(ctx context.Context, opts Options) (*models.ProvisionReport, error)
	Plan(ctx context.Context, opts Options) (*models.ProvisionPlan, error)
}
