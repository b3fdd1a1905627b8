package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/accountlist"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/engine"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/output"
)

var scopeMenu = []string{"All accounts", "Active accounts", "Suspended accounts"}

func scopeFromMenu(i int) models.AccountScope {
	return []models.AccountScope{models.ScopeAll, models.ScopeActive, models.ScopeSuspended}[i]
}

func newAccountsCmd(g *globalOptions, d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect organization member accounts",
	}
	cmd.AddCommand(newAccountsListCmd(g, d))
	return cmd
}

func newAccountsListCmd(g *globalOptions, d deps) *cobra.Command {
	var (
		scope       string
		format      string
		outPath     string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List member accounts from AWS Organizations",
		Long: `List member accounts from AWS Organizations, optionally filtered by status.

With --output the list is also saved in the account list format that
"orgtrail provision --source file" reads.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			if interactive {
				p := newPrompter(d.stdin, cmd.ErrOrStderr(), g.colored())
				i, err := p.choose("Which accounts should be listed?", scopeMenu)
				if err != nil {
					return err
				}
				scope = string(scopeFromMenu(i))
			}
			sc, err := models.ParseAccountScope(scope)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidOperatorInput, err)
			}
			if err := checkFormat(format, "table", "yaml", "json"); err != nil {
				return err
			}

			log := newLogger(cmd.ErrOrStderr(), g.verbose)
			defer log.Sync()

			eng := engine.NewDefaultEngine(cfg, d.provider, d.factory, nil, log)

			spin := startSpinner(cmd.ErrOrStderr(), "Listing organization accounts")
			accounts, err := eng.ResolveAccounts(cmd.Context(), engine.Options{Source: engine.SourceDirectory, Scope: sc})
			spin.Stop()
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}

			if outPath != "" {
				if err := accountlist.Save(outPath, accounts); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s to %s\n", english.Plural(len(accounts), "account", ""), outPath)
			}
			return writeAccounts(cmd.OutOrStdout(), accounts, format, g.colored())
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "all", "Account status filter: all, active or suspended")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, yaml or json")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Also save the list to this file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Choose the scope from a menu")
	return cmd
}

func writeAccounts(w io.Writer, accounts []models.Account, format string, colored bool) error {
	switch format {
	case "yaml":
		return accountlist.Encode(w, accounts)
	case "json":
		return output.WriteJSON(w, accounts)
	default:
		output.RenderAccounts(w, accounts, output.TableOptions{Colored: colored})
		return nil
	}
}

func checkFormat(got string, allowed ...string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown format %q (want one of %s)", ErrInvalidOperatorInput, got, english.OxfordWordSeries(allowed, "or"))
}
