package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"emperror.dev/errors"
	"github.com/aviator-co/adoexport/internal/config"
	"github.com/kr/text"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootFlags struct {
	Debug  bool
	Config string
}

// cfg is populated by the root command's PersistentPreRunE.
var cfg *config.Config

var RootCmd = &cobra.Command{
	Use:   "adoexport",
	Short: "export your commits and work items from Azure DevOps",
	Long: `Export the commits you authored in every repository of an Azure DevOps
project, and the work items you worked on, as JSON files.

Without a subcommand, commits are exported first and work items second.
Anything that was already exported is skipped, so an interrupted export can
simply be re-run.`,
	Args: cobra.NoArgs,

	// Don't automatically print errors or usage information (we handle that ourselves).
	// Cobra still prints usage if you return cmd.Usage() from RunE.
	SilenceErrors: true,
	SilenceUsage:  true,

	// Don't show "completion" command in help menu
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},

	// Run setup before invoking any child commands.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if rootFlags.Debug {
			logrus.SetLevel(logrus.DebugLevel)
			logrus.WithField("adoexport_version", config.Version).Debug("enabled debug logging")
		}

		// Note: this only returns an error if config exists and it can't be
		// read/parsed. It doesn't return an error if no config file exists.
		var (
			didLoadConfig bool
			err           error
		)
		cfg, didLoadConfig, err = config.Load(rootFlags.Config, cmd.Flags())
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
		if didLoadConfig {
			logrus.Debug("loaded configuration")
		} else {
			logrus.Debug("no configuration found")
		}
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newExporter()
		if err != nil {
			return err
		}
		report, err := e.Run(cmd.Context())
		if report != nil {
			printReport(report)
		}
		return err
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(
		&rootFlags.Debug, "debug", false,
		"enable verbose debug logging",
	)
	RootCmd.PersistentFlags().StringVar(
		&rootFlags.Config, "config", "",
		"path to the configuration file",
	)
	RootCmd.PersistentFlags().StringP(
		"output", "o", "",
		"directory to write the export to (default \"./out\")",
	)
	RootCmd.PersistentFlags().String(
		"organization", "",
		"Azure DevOps organization",
	)
	RootCmd.PersistentFlags().String(
		"project", "",
		"Azure DevOps project",
	)
	RootCmd.PersistentFlags().String(
		"username", "",
		"user name for basic authentication (the password is read from $"+config.PasswordEnv+")",
	)
	RootCmd.PersistentFlags().String(
		"from", "",
		"only export commits and work items from this date (YYYY-MM-DD) on (default \"2019-01-01\")",
	)
	RootCmd.AddCommand(
		commitsCmd,
		workItemsCmd,
		verifyCmd,
		configCmd,
		versionCmd,
	)
}

func main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {

		// In debug mode, show more detailed information about the error
		// (including the stack trace).
		if rootFlags.Debug {
			stackTrace := fmt.Sprintf("%+v", err)
			_, _ = fmt.Fprintf(os.Stderr, "error: %s\n%s\n", err, text.Indent(stackTrace, "\t"))
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}

		stop()
		os.Exit(1)
	}
}
