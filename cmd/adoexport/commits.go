package main

import (
	"github.com/aviator-co/adoexport/internal/export"
	"github.com/spf13/cobra"
)

var commitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "export commits only",
	Long: `Export the configured author's commits, one file per repository.

Repositories without matching commits get a file prefixed with "@" so that
they aren't queried again on the next run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newExporter()
		if err != nil {
			return err
		}
		report, err := e.DumpCommits(cmd.Context())
		if report != nil {
			printReport(&export.Report{Commits: report})
		}
		return err
	},
}
