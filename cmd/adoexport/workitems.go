package main

import (
	"fmt"

	"github.com/aviator-co/adoexport/internal/export"
	"github.com/spf13/cobra"
)

var workItemsFlags struct {
	PrintQuery bool
}

var workItemsCmd = &cobra.Command{
	Use:     "workitems",
	Aliases: []string{"wi"},
	Short:   "export work items only",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if workItemsFlags.PrintQuery {
			// Rendering the query doesn't need credentials.
			e, err := export.New(cfg, nil)
			if err != nil {
				return err
			}
			fmt.Println(e.Query())
			return nil
		}
		e, err := newExporter()
		if err != nil {
			return err
		}
		report, err := e.DumpWorkItems(cmd.Context())
		if err != nil {
			return err
		}
		printReport(&export.Report{WorkItems: report})
		return nil
	},
}

func init() {
	workItemsCmd.Flags().BoolVar(
		&workItemsFlags.PrintQuery, "print-query", false,
		"print the WIQL query instead of running it",
	)
}
