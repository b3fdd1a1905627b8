package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/config"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/engine"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/output"
)

var sourceMenu = []string{"AWS Organizations (live account list)", "Account list file"}

type provisionFlags struct {
	source       string
	scope        string
	accountsFile string
	saveAccounts string
	report       string
	yes          bool
	dryRun       bool
	interactive  bool
}

func newProvisionCmd(g *globalOptions, d deps) *cobra.Command {
	f := &provisionFlags{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Grant bucket access and enable the trail in every account",
		Long: `Provision CloudTrail across the organization.

The central bucket policy is extended with a PutObject and a GetBucketAcl
statement for every target account, then the configured trail is created
(multi-region, log file validation, global service events) and started in
each account. Accounts are processed one at a time; a failure in one account
is reported and the rest continue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			p := newPrompter(d.stdin, cmd.ErrOrStderr(), g.colored())

			if f.interactive {
				cfg, err = promptProvision(p, cfg, f)
				if err != nil {
					return err
				}
			}
			if err := cfg.Check(); err != nil {
				return err
			}

			opts, err := f.options()
			if err != nil {
				return err
			}
			if err := checkFormat(f.report, "table", "json"); err != nil {
				return err
			}

			log := newLogger(cmd.ErrOrStderr(), g.verbose)
			defer log.Sync()

			tableOpts := output.TableOptions{Colored: g.colored()}
			confirm := engine.ConfirmFunc(func(_ context.Context, s engine.Summary) (bool, error) {
				output.RenderSummary(cmd.ErrOrStderr(), s, tableOpts)
				return p.confirm("Proceed?")
			})
			eng := engine.NewDefaultEngine(cfg, d.provider, d.factory, confirm, log)

			return runProvision(cmd.Context(), eng, opts, f.report, cmd.OutOrStdout(), cmd.ErrOrStderr(), tableOpts)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.source, "source", string(engine.SourceDirectory), "Where accounts come from: directory or file")
	fl.StringVar(&f.scope, "scope", "active", "Account status filter: all, active or suspended")
	fl.StringVar(&f.accountsFile, "accounts-file", "", "Account list to read with --source file (default: AccountsFile setting)")
	fl.StringVar(&f.saveAccounts, "save-accounts", "", "Save the resolved accounts to this file before provisioning")
	fl.StringVar(&f.report, "report", "table", "Output format: table or json")
	fl.BoolVarP(&f.yes, "yes", "y", false, "Skip the confirmation prompt")
	fl.BoolVar(&f.dryRun, "dry-run", false, "Show what would change without writing anything")
	fl.BoolVarP(&f.interactive, "interactive", "i", false, "Prompt for the account source and settings")
	return cmd
}

func (f *provisionFlags) options() (engine.Options, error) {
	src, err := engine.ParseAccountSource(f.source)
	if err != nil {
		return engine.Options{}, fmt.Errorf("%w: %w", ErrInvalidOperatorInput, err)
	}
	sc, err := models.ParseAccountScope(f.scope)
	if err != nil {
		return engine.Options{}, fmt.Errorf("%w: %w", ErrInvalidOperatorInput, err)
	}
	return engine.Options{
		Source:         src,
		Scope:          sc,
		AccountsFile:   f.accountsFile,
		SaveAccountsTo: f.saveAccounts,
		AssumeYes:      f.yes,
		DryRun:         f.dryRun,
	}, nil
}

// runProvision executes a plan or a run and renders the result to out.
// The returned error is non-nil when the run was aborted or any account
// failed.
func runProvision(ctx context.Context, eng engine.Engine, opts engine.Options, format string, out, errOut io.Writer, tableOpts output.TableOptions) error {
	if opts.DryRun {
		plan, err := eng.Plan(ctx, opts)
		if err != nil {
			return err
		}
		if format == "json" {
			return output.WriteJSON(out, plan)
		}
		output.RenderPlan(out, plan, tableOpts)
		return nil
	}

	report, err := eng.Run(ctx, opts)
	if errors.Is(err, engine.ErrAborted) {
		fmt.Fprintln(errOut, "Aborted; nothing was changed.")
		return err
	}
	if report == nil {
		return err
	}

	if format == "json" {
		if jerr := output.WriteJSON(out, report); jerr != nil {
			return jerr
		}
	} else {
		output.RenderReport(out, report, tableOpts)
	}
	if err != nil {
		return err
	}

	if rerr := report.Err(); rerr != nil {
		return fmt.Errorf("%s failed: %w", english.Plural(len(report.Failed()), "account", ""), rerr)
	}
	return nil
}

// promptProvision asks for the account source and every setting, offering
// the current values as defaults.
func promptProvision(p *prompter, cfg config.Config, f *provisionFlags) (config.Config, error) {
	i, err := p.choose("Where should the target accounts come from?", sourceMenu)
	if err != nil {
		return cfg, err
	}
	if i == 0 {
		f.source = string(engine.SourceDirectory)
		j, err := p.choose("Which accounts should be provisioned?", scopeMenu)
		if err != nil {
			return cfg, err
		}
		f.scope = string(scopeFromMenu(j))
	} else {
		f.source = string(engine.SourceFile)
		def := f.accountsFile
		if def == "" {
			def = cfg.AccountsFile
		}
		if f.accountsFile, err = p.ask("Account list file", def); err != nil {
			return cfg, err
		}
	}

	askID := func(label, def string) (string, error) {
		v, err := p.ask(label, def)
		if err != nil {
			return "", err
		}
		if !config.IsAccountID(v) {
			return "", fmt.Errorf("%w: %s %q is not a 12-digit account id", ErrInvalidOperatorInput, label, v)
		}
		return v, nil
	}

	out := cfg
	if out.ManagementAccountID, err = askID("Management account ID", cfg.ManagementAccountID); err != nil {
		return cfg, err
	}
	if out.LoggingAccountID, err = askID("Logging account ID", cfg.LoggingAccountID); err != nil {
		return cfg, err
	}
	if out.AccessRole, err = p.ask("Cross-account role name", cfg.AccessRole); err != nil {
		return cfg, err
	}

	// A bucket name derived from the old logging account follows the new one.
	bucketDef := cfg.BucketName
	if bucketDef == "" || bucketDef == config.DefaultBucketName(cfg.LoggingAccountID) {
		bucketDef = config.DefaultBucketName(out.LoggingAccountID)
	}
	if out.BucketName, err = p.ask("CloudTrail bucket name", bucketDef); err != nil {
		return cfg, err
	}
	if out.TrailName, err = p.ask("Trail name", cfg.TrailName); err != nil {
		return cfg, err
	}

	return out, nil
}
