package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/config"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/models"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/providers/aws/common"
	awsorg "github.com/pankaj-dahiya-devops/orgtrail/internal/providers/aws/organizations"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/trail"
)

// DoctorResult is the structured output of orgtrail doctor. It can be
// serialised to JSON via --format=json or rendered as text (default).
type DoctorResult struct {
	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		RegionsOK   bool   `json:"regions_ok"`
		Regions     int    `json:"regions"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Organizations struct {
		Reachable bool   `json:"reachable"`
		Accounts  int    `json:"accounts"`
		Active    int    `json:"active"`
		Error     string `json:"error,omitempty"`
	} `json:"organizations"`

	CloudTrail struct {
		Checked           bool     `json:"checked"`
		MultiRegionTrails []string `json:"multi_region_trails,omitempty"`
		RegionsCovered    int      `json:"regions_covered"`
		Error             string   `json:"error,omitempty"`
	} `json:"cloudtrail"`

	Config struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"config"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd(g *globalOptions, d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			loader := config.NewFileLoader(g.configPath)
			loaded, err := loader.Load()
			if err != nil {
				return err
			}
			cfg := loaded.Override(config.Config{LocalProfile: g.profile, Region: g.region})

			result, err := runDoctor(cmd.Context(), d.provider, cmd.OutOrStdout(), format, loader.ConfigPath(), cfg, g.colored())
			if err != nil {
				// Rendering failure; let main report it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text is printed after the report.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures. Callers inspect
// result.OverallHealthy to decide the exit status.
func runDoctor(ctx context.Context, provider common.AWSClientProvider, w io.Writer, format, cfgPath string, cfg config.Config, colored bool) (DoctorResult, error) {
	result := collectDoctorResult(ctx, provider, cfgPath, cfg)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w, colored)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a
// DoctorResult. It performs no rendering and no writes.
func collectDoctorResult(ctx context.Context, provider common.AWSClientProvider, cfgPath string, cfg config.Config) DoctorResult {
	var result DoctorResult

	// AWS: credentials -> STS account ID -> region discovery.
	result.AWS.Profile = cfg.LocalProfile
	profile, err := provider.LoadProfile(ctx, cfg.LocalProfile, cfg.Region)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profile.AccountID
		regions, err := provider.GetActiveRegions(ctx, profile)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.RegionsOK = true
			result.AWS.Regions = len(regions)
		}
	}

	if result.AWS.Credentials {
		// Organizations: can the management identity list member accounts?
		accounts, err := awsorg.NewDirectory(profile.Clients.Organizations).ListAccounts(ctx, models.ScopeAll)
		if err != nil {
			result.Organizations.Error = err.Error()
		} else {
			result.Organizations.Reachable = true
			result.Organizations.Accounts = len(accounts)
			result.Organizations.Active = len(models.FilterAccounts(accounts, models.ScopeActive))
		}

		// CloudTrail: is the management account already covered everywhere?
		trails, err := trail.MultiRegionTrails(ctx, profile.Clients.CloudTrail)
		if err != nil {
			result.CloudTrail.Error = err.Error()
		} else {
			result.CloudTrail.Checked = true
			for _, t := range trails {
				result.CloudTrail.MultiRegionTrails = append(result.CloudTrail.MultiRegionTrails, t.Name)
			}
			if len(trails) > 0 {
				result.CloudTrail.RegionsCovered = result.AWS.Regions
			}
		}
	}

	// Settings: optional file, but the merged values must validate.
	result.Config.Path = cfgPath
	if _, err := os.Stat(cfgPath); err == nil {
		result.Config.Present = true
	}
	errs := cfg.Validate()
	result.Config.Valid = len(errs) == 0
	for _, e := range errs {
		result.Config.Errors = append(result.Config.Errors, e.Error())
	}

	result.OverallHealthy = result.AWS.Credentials &&
		result.AWS.RegionsOK &&
		result.Organizations.Reachable &&
		result.Config.Valid

	return result
}

// renderDoctorTable writes the human-readable diagnostic output to w.
func renderDoctorTable(result DoctorResult, w io.Writer, colored bool) {
	fmt.Fprintln(w, "Environment Diagnostics")

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, colored, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, colored, "STS Identity", "FAIL", "skipped")
		doctorPrint(w, colored, "Regions API", "FAIL", "skipped")
	} else {
		doctorPrint(w, colored, "Credentials", "OK", "")
		doctorPrint(w, colored, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		if result.AWS.RegionsOK {
			doctorPrint(w, colored, "Regions API", "OK", fmt.Sprintf("%d enabled", result.AWS.Regions))
		} else {
			doctorPrint(w, colored, "Regions API", "FAIL", result.AWS.Error)
		}
	}

	fmt.Fprintln(w, "\nOrganizations:")
	switch {
	case !result.AWS.Credentials:
		doctorPrint(w, colored, "ListAccounts", "FAIL", "skipped")
	case result.Organizations.Reachable:
		doctorPrint(w, colored, "ListAccounts", "OK",
			fmt.Sprintf("%d accounts, %d active", result.Organizations.Accounts, result.Organizations.Active))
	default:
		doctorPrint(w, colored, "ListAccounts", "FAIL", result.Organizations.Error)
	}

	fmt.Fprintln(w, "\nCloudTrail (management account):")
	switch {
	case !result.CloudTrail.Checked && result.CloudTrail.Error == "":
		doctorPrint(w, colored, "Multi-region trail", "FAIL", "skipped")
	case result.CloudTrail.Error != "":
		doctorPrint(w, colored, "Multi-region trail", "WARN", result.CloudTrail.Error)
	case len(result.CloudTrail.MultiRegionTrails) == 0:
		doctorPrint(w, colored, "Multi-region trail", "WARN", "none; run orgtrail provision")
	default:
		doctorPrint(w, colored, "Multi-region trail", "OK",
			fmt.Sprintf("%v covers %d regions", result.CloudTrail.MultiRegionTrails, result.CloudTrail.RegionsCovered))
	}

	fmt.Fprintln(w, "\nSettings:")
	if result.Config.Present {
		doctorPrint(w, colored, "Settings file", "YES", result.Config.Path)
	} else {
		doctorPrint(w, colored, "Settings file", "Not found (optional)", result.Config.Path)
	}
	if result.Config.Valid {
		doctorPrint(w, colored, "Settings valid", "OK", "")
	} else {
		for _, e := range result.Config.Errors {
			doctorPrint(w, colored, "Settings valid", "FAIL", e)
		}
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, colored bool, label, status, detail string) {
	if colored {
		switch status {
		case "OK", "YES":
			status = color.New(color.FgGreen).Sprint(status)
		case "FAIL":
			status = color.New(color.FgRed).Sprint(status)
		case "WARN":
			status = color.New(color.FgYellow).Sprint(status)
		}
	}
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
