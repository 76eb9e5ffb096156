package main

import (
	"os"

	"emperror.dev/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "print the effective configuration",
	Long: `Print the configuration after merging the config file, environment
variables, and flags. The password is redacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg.Redacted()); err != nil {
			return errors.Wrap(err, "failed to print configuration")
		}
		return enc.Close()
	},
}
