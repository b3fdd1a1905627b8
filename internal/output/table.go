package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/engine"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
)

// TableOptions controls how tables are rendered.
type TableOptions struct {
	// Colored enables ANSI colours. Default false (CI-safe).
	Colored bool
}

// paint wraps s in attrs when colored is true. Colours are forced on so the
// caller's decision wins over color.NoColor detection.
func paint(colored bool, s string, attrs ...color.Attribute) string {
	if !colored {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

// ColorState renders a trail state, green when logging.
func ColorState(state models.TrailState, colored bool) string {
	switch state {
	case models.TrailExistsLogging:
		return paint(colored, string(state), color.FgGreen)
	case models.TrailExistsNotLogging:
		return paint(colored, string(state), color.FgYellow)
	case models.TrailAbsent:
		return paint(colored, string(state), color.FgHiBlack)
	}
	return string(state)
}

// ColorStatus renders an account status, yellow unless ACTIVE.
func ColorStatus(status models.AccountStatus, colored bool) string {
	if status == models.StatusActive {
		return string(status)
	}
	return paint(colored, string(status), color.FgYellow)
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// RenderAccounts writes the account list as a table followed by a count.
func RenderAccounts(w io.Writer, accounts []models.Account, opts TableOptions) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No accounts.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ACCOUNT ID", "NAME", "STATUS"})
	for _, a := range accounts {
		t.AppendRow(table.Row{a.ID, a.Name, ColorStatus(a.Status, opts.Colored)})
	}
	t.Render()
	fmt.Fprintln(w, english.Plural(len(accounts), "account", ""))
}

// RenderSummary writes the pre-mutation banner the operator confirms.
func RenderSummary(w io.Writer, s engine.Summary, opts TableOptions) {
	fmt.Fprintln(w, paint(opts.Colored, "The following changes will be made:", color.Bold))
	fmt.Fprintf(w, "  Trail name:          %s\n", s.TrailName)
	fmt.Fprintf(w, "  Logging bucket:      %s\n", s.BucketName)
	fmt.Fprintf(w, "  Logging account:     %s\n", s.LoggingAccountID)
	fmt.Fprintf(w, "  Management account:  %s\n", s.ManagementAccountID)
	fmt.Fprintf(w, "  Target %s:\n", english.PluralWord(len(s.Accounts), "account", ""))
	for _, a := range s.Accounts {
		fmt.Fprintf(w, "    %s  %s  %s\n", a.ID, a.Name, ColorStatus(a.Status, opts.Colored))
	}
	fmt.Fprintf(w, "The bucket policy will grant CloudTrail write access for %s, and the trail will be created and started in each.\n",
		english.Plural(len(s.Accounts), "account", ""))
}

func describePolicy(p models.PolicyChange, dryRun bool) string {
	var parts []string
	if p.Bootstrapped {
		if dryRun {
			parts = append(parts, "default policy would be created")
		} else {
			parts = append(parts, "default policy created")
		}
	}
	verb := "added"
	if dryRun {
		verb = "to add"
	}
	parts = append(parts, fmt.Sprintf("%s %s", english.Plural(len(p.AddedSids), "statement", ""), verb))
	if n := len(p.SkippedAccounts); n > 0 {
		parts = append(parts, fmt.Sprintf("%s already granted", english.Plural(n, "account", "")))
	}
	if !dryRun && !p.Committed {
		parts = append(parts, "no write needed")
	}
	return strings.Join(parts, ", ")
}

// RenderReport writes a provisioning report: the policy change, one row per
// account and a footer with the success count and run duration.
func RenderReport(w io.Writer, r *models.ProvisionReport, opts TableOptions) {
	fmt.Fprintf(w, "Trail %s -> s3://%s (logging account %s)\n", r.TrailName, r.BucketName, r.LoggingAccountID)
	fmt.Fprintf(w, "Bucket policy: %s\n", describePolicy(r.Policy, false))

	if len(r.Outcomes) == 0 {
		fmt.Fprintln(w, "No accounts processed.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ACCOUNT ID", "NAME", "CREDENTIALS", "STATE", "RESULT"})
	for _, o := range r.Outcomes {
		result := paint(opts.Colored, "ok", color.FgGreen)
		if o.Trail.Created && o.Err == nil {
			result = paint(opts.Colored, "created", color.FgGreen)
		}
		if o.Err != nil {
			result = paint(opts.Colored, ShortenMessage(o.Err.Error(), 60), color.FgRed)
		}
		t.AppendRow(table.Row{o.AccountID, o.AccountName, string(o.Credentials), ColorState(o.State, opts.Colored), result})
	}
	t.Render()

	footer := fmt.Sprintf("%d of %s provisioned", r.Succeeded(), english.Plural(len(r.Outcomes), "account", ""))
	if !r.StartedAt.IsZero() && r.FinishedAt.Sub(r.StartedAt) >= time.Second {
		footer += " in " + strings.TrimSpace(humanize.RelTime(r.StartedAt, r.FinishedAt, "", ""))
	}
	if failed := len(r.Failed()); failed > 0 {
		footer = paint(opts.Colored, footer, color.FgRed)
	}
	fmt.Fprintln(w, footer)
}

// RenderPlan writes a dry-run preview.
func RenderPlan(w io.Writer, p *models.ProvisionPlan, opts TableOptions) {
	fmt.Fprintf(w, "Dry run: trail %s -> s3://%s (logging account %s)\n", p.TrailName, p.BucketName, p.LoggingAccountID)
	if len(p.Accounts) == 0 {
		fmt.Fprintln(w, "No accounts matched.")
		return
	}
	fmt.Fprintf(w, "Bucket policy: %s\n", describePolicy(p.Policy, true))

	t := newTable(w)
	t.AppendHeader(table.Row{"ACCOUNT ID", "NAME", "CREDENTIALS", "CURRENT STATE", "NOTE"})
	for _, o := range p.TrailStates {
		note := ""
		switch {
		case o.Err != nil:
			note = paint(opts.Colored, ShortenMessage(o.Err.Error(), 60), color.FgRed)
		case o.State == models.TrailAbsent:
			note = "will create and start"
		case o.State == models.TrailExistsNotLogging:
			note = "will start"
		}
		t.AppendRow(table.Row{o.AccountID, o.AccountName, string(o.Credentials), ColorState(o.State, opts.Colored), note})
	}
	t.Render()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
