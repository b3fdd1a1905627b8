package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/orgtrail/internal/config"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/orgtrail/internal/version"
)

// deps are the external collaborators of every command. Tests replace them
// with fakes.
type deps struct {
	provider common.AWSClientProvider
	factory  common.ClientFactory
	stdin    io.Reader
}

func defaultDeps() deps {
	p := common.NewDefaultAWSClientProvider()
	return deps{provider: p, factory: p.Factory(), stdin: os.Stdin}
}

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	profile    string
	region     string
	verbose    bool
	noColor    bool
}

// loadConfig reads the settings file and applies --profile and --region.
func (g *globalOptions) loadConfig() (config.Config, error) {
	cfg, err := config.NewFileLoader(g.configPath).Load()
	if err != nil {
		return config.Config{}, err
	}
	return cfg.Override(config.Config{LocalProfile: g.profile, Region: g.region}), nil
}

func (g *globalOptions) colored() bool {
	return !g.noColor && !color.NoColor
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithDeps(defaultDeps())
}

func newRootCmdWithDeps(d deps) *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:           "orgtrail",
		Short:         "Enable CloudTrail in every account of an AWS Organization",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				color.NoColor = true
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", config.DefaultFile, "Settings file")
	pf.StringVar(&g.profile, "profile", "", "AWS profile for the management account (overrides LocalProfile)")
	pf.StringVar(&g.region, "region", "", "AWS region (overrides Region)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable coloured output")

	root.AddCommand(
		newAccountsCmd(g, d),
		newProvisionCmd(g, d),
		newDoctorCmd(g, d),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

type stopper interface{ Stop() }

type noSpinner struct{}

func (noSpinner) Stop() {}

// startSpinner shows msg with a spinner on w while a remote call runs. It
// only draws when w is a terminal file; other writers get a no-op.
func startSpinner(w io.Writer, msg string) stopper {
	f, ok := w.(*os.File)
	if !ok {
		return noSpinner{}
	}
	s := spinner.New(spinner.CharSets[9], 200*time.Millisecond, spinner.WithWriterFile(f))
	s.Suffix = " " + msg + " ..."
	s.Start()
	return s
}
