package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/accountlist"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/bucketpolicy"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/config"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
	awsassume "github.com/pankaj-dahiya-devops/orgtrail/internal/providers/aws/assume"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/providers/aws/common"
	awsorg "github.com/pankaj-dahiya-devops/orgtrail/internal/providers/aws/organizations"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/trail"
)

// DefaultEngine is the production implementation of Engine.
// Accounts are processed strictly in order on the calling goroutine.
type DefaultEngine struct {
	cfg      config.Config
	provider common.AWSClientProvider
	factory  common.ClientFactory
	confirm  Confirmer
	log      *zap.Logger
	trails   *trail.Provisioner
	now      func() time.Time
}

// NewDefaultEngine constructs a DefaultEngine. factory builds the clients for
// brokered accounts; nil selects common.NewClientSet. A nil confirm makes
// every run that does not set AssumeYes abort.
func NewDefaultEngine(
	cfg config.Config,
	provider common.AWSClientProvider,
	factory common.ClientFactory,
	confirm Confirmer,
	log *zap.Logger,
) *DefaultEngine {
	if factory == nil {
		factory = common.NewClientSet
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DefaultEngine{
		cfg:      cfg,
		provider: provider,
		factory:  factory,
		confirm:  confirm,
		log:      log,
		trails:   trail.NewProvisioner(log),
		now:      time.Now,
	}
}

// session holds the management identity for one Run or Plan.
type session struct {
	profile *common.ProfileConfig
	mgmtID  string
	broker  *awsassume.Broker
}

func (e *DefaultEngine) openSession(ctx context.Context) (*session, error) {
	profile, err := e.provider.LoadProfile(ctx, e.cfg.LocalProfile, e.cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("load management profile: %w", err)
	}

	mgmtID := e.cfg.ManagementAccountID
	if mgmtID == "" {
		mgmtID = profile.AccountID
	}
	if profile.AccountID != mgmtID {
		e.log.Warn("profile credentials do not belong to the management account",
			zap.String("profile", profile.ProfileName),
			zap.String("profile_account_id", profile.AccountID),
			zap.String("account_id", mgmtID),
		)
	}

	return &session{
		profile: profile,
		mgmtID:  mgmtID,
		broker:  awsassume.NewBroker(profile.Clients.STS, e.cfg.SessionName),
	}, nil
}

// clientsFor returns clients acting in accountID: the management profile's
// own clients for the management account, otherwise clients built from a
// freshly assumed role.
func (e *DefaultEngine) clientsFor(ctx context.Context, s *session, accountID string) (*common.ClientSet, models.CredentialSource, error) {
	if accountID == s.mgmtID {
		return s.profile.Clients, models.CredentialsManagement, nil
	}
	creds, err := s.broker.Assume(ctx, accountID, e.cfg.AccessRole)
	if err != nil {
		return nil, models.CredentialsAssumed, err
	}
	return e.factory(e.provider.ConfigWithCredentials(s.profile, creds.Provider())), models.CredentialsAssumed, nil
}

// ResolveAccounts returns the target accounts for opts without touching
// anything remote beyond a directory listing.
func (e *DefaultEngine) ResolveAccounts(ctx context.Context, opts Options) ([]models.Account, error) {
	if opts.Source == SourceFile {
		return e.resolve(ctx, opts, nil)
	}
	s, err := e.openSession(ctx)
	if err != nil {
		return nil, err
	}
	return e.resolve(ctx, opts, s)
}

func (e *DefaultEngine) resolve(ctx context.Context, opts Options, s *session) ([]models.Account, error) {
	var (
		accounts []models.Account
		err      error
	)
	switch opts.Source {
	case SourceFile:
		path := opts.AccountsFile
		if path == "" {
			path = e.cfg.AccountsFile
		}
		accounts, err = accountlist.Load(path)
		if err != nil {
			return nil, err
		}
		accounts = models.FilterAccounts(accounts, opts.Scope)
		e.log.Debug("accounts loaded from file", zap.String("path", path), zap.Int("count", len(accounts)))
	default:
		accounts, err = awsorg.NewDirectory(s.profile.Clients.Organizations).ListAccounts(ctx, opts.Scope)
		if err != nil {
			return nil, err
		}
		e.log.Debug("accounts listed from directory", zap.Int("count", len(accounts)))
	}
	return accounts, nil
}

// Run provisions every resolved account. Per-account failures are recorded on
// the report's outcomes and do not stop the batch; the returned error is
// reserved for failures that prevent the batch from running at all (account
// resolution, the confirmation gate, the bucket policy).
func (e *DefaultEngine) Run(ctx context.Context, opts Options) (*models.ProvisionReport, error) {
	report := &models.ProvisionReport{
		StartedAt:        e.now().UTC(),
		TrailName:        e.cfg.TrailName,
		BucketName:       e.cfg.BucketName,
		LoggingAccountID: e.cfg.LoggingAccountID,
	}

	s, err := e.openSession(ctx)
	if err != nil {
		return nil, err
	}
	report.ManagementAccountID = s.mgmtID

	accounts, err := e.resolve(ctx, opts, s)
	if err != nil {
		return nil, fmt.Errorf("resolve accounts: %w", err)
	}

	if opts.SaveAccountsTo != "" {
		if err := accountlist.Save(opts.SaveAccountsTo, accounts); err != nil {
			return nil, err
		}
		e.log.Info("account list saved", zap.String("path", opts.SaveAccountsTo), zap.Int("count", len(accounts)))
	}

	if len(accounts) == 0 {
		e.log.Warn("no accounts matched; nothing to do", zap.String("scope", string(opts.Scope)))
		report.FinishedAt = e.now().UTC()
		return report, nil
	}

	if !opts.AssumeYes {
		ok, err := e.confirmRun(ctx, Summary{
			TrailName:           e.cfg.TrailName,
			BucketName:          e.cfg.BucketName,
			LoggingAccountID:    e.cfg.LoggingAccountID,
			ManagementAccountID: s.mgmtID,
			Accounts:            accounts,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAborted
		}
	}

	change, err := e.updatePolicy(ctx, s, accounts)
	if err != nil {
		return nil, err
	}
	report.Policy = change

	for _, acct := range accounts {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = e.now().UTC()
			return report, err
		}
		report.Outcomes = append(report.Outcomes, e.provisionAccount(ctx, s, acct))
	}

	report.FinishedAt = e.now().UTC()
	return report, nil
}

func (e *DefaultEngine) confirmRun(ctx context.Context, sum Summary) (bool, error) {
	if e.confirm == nil {
		return false, nil
	}
	return e.confirm.Confirm(ctx, sum)
}

// updatePolicy grants every account write access to the logging bucket.
// Failures here abort the run before any trail is touched.
func (e *DefaultEngine) updatePolicy(ctx context.Context, s *session, accounts []models.Account) (models.PolicyChange, error) {
	bucket := e.cfg.BucketName
	log := e.log.With(zap.String("bucket", bucket), zap.String("account_id", e.cfg.LoggingAccountID))

	clients, _, err := e.clientsFor(ctx, s, e.cfg.LoggingAccountID)
	if err != nil {
		return models.PolicyChange{}, fmt.Errorf("logging account %s: %w", e.cfg.LoggingAccountID, err)
	}
	policies := bucketpolicy.NewEngine(clients.S3, e.log)

	doc, bootstrapped, err := policies.EnsurePolicy(ctx, bucket, e.cfg.LoggingAccountID)
	if err != nil {
		return models.PolicyChange{}, err
	}

	merged, res := bucketpolicy.MergeAccounts(doc, bucket, accounts)
	for _, sid := range res.Added {
		log.Debug("statement appended", zap.String("sid", sid))
	}

	change := models.PolicyChange{
		Bootstrapped:    bootstrapped,
		AddedSids:       res.Added,
		SkippedAccounts: res.Skipped,
	}
	if !res.Changed() && !bootstrapped {
		log.Info("bucket policy already grants every account")
		return change, nil
	}
	if err := policies.Commit(ctx, bucket, merged); err != nil {
		return models.PolicyChange{}, err
	}
	change.Committed = true
	return change, nil
}

func (e *DefaultEngine) provisionAccount(ctx context.Context, s *session, acct models.Account) models.AccountOutcome {
	out := models.AccountOutcome{AccountID: acct.ID, AccountName: acct.Name, State: models.TrailAbsent}
	log := e.log.With(zap.String("account_id", acct.ID), zap.String("trail", e.cfg.TrailName))

	clients, source, err := e.clientsFor(ctx, s, acct.ID)
	out.Credentials = source
	if err != nil {
		log.Error("could not obtain credentials", zap.Error(err))
		out.Fail(err)
		return out
	}

	t, err := e.trails.EnsureTrail(ctx, clients.CloudTrail, e.cfg.TrailName, e.cfg.BucketName)
	out.Trail = t
	if err != nil {
		log.Error("trail provisioning failed", zap.Error(err))
		out.State = t.State()
		out.Fail(err)
		return out
	}
	out.State = models.TrailExistsLogging
	return out
}

// Plan resolves accounts and reports what Run would change without writing
// anything and without asking for confirmation.
func (e *DefaultEngine) Plan(ctx context.Context, opts Options) (*models.ProvisionPlan, error) {
	s, err := e.openSession(ctx)
	if err != nil {
		return nil, err
	}

	accounts, err := e.resolve(ctx, opts, s)
	if err != nil {
		return nil, fmt.Errorf("resolve accounts: %w", err)
	}

	plan := &models.ProvisionPlan{
		TrailName:        e.cfg.TrailName,
		BucketName:       e.cfg.BucketName,
		LoggingAccountID: e.cfg.LoggingAccountID,
		Accounts:         accounts,
	}
	if len(accounts) == 0 {
		return plan, nil
	}

	clients, _, err := e.clientsFor(ctx, s, e.cfg.LoggingAccountID)
	if err != nil {
		return nil, fmt.Errorf("logging account %s: %w", e.cfg.LoggingAccountID, err)
	}
	fetched, err := bucketpolicy.NewEngine(clients.S3, e.log).Fetch(ctx, e.cfg.BucketName)
	if err != nil {
		return nil, err
	}
	doc := fetched.Document
	if fetched.Status == bucketpolicy.NotFound {
		doc = bucketpolicy.DefaultDocument(e.cfg.BucketName, e.cfg.LoggingAccountID)
		plan.Policy.Bootstrapped = true
	}
	_, res := bucketpolicy.MergeAccounts(doc, e.cfg.BucketName, accounts)
	plan.Policy.AddedSids = res.Added
	plan.Policy.SkippedAccounts = res.Skipped

	for _, acct := range accounts {
		out := models.AccountOutcome{AccountID: acct.ID, AccountName: acct.Name}
		clients, source, err := e.clientsFor(ctx, s, acct.ID)
		out.Credentials = source
		if err != nil {
			out.Fail(err)
			plan.TrailStates = append(plan.TrailStates, out)
			continue
		}
		t, state, err := e.trails.Describe(ctx, clients.CloudTrail, e.cfg.TrailName)
		if err != nil {
			out.Fail(err)
		}
		out.Trail = t
		out.State = state
		plan.TrailStates = append(plan.TrailStates, out)
	}
	return plan, nil
}
