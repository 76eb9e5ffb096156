package main

import (
	"fmt"
	"os"

	"github.com/aviator-co/adoexport/internal/ledger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "check exported files against the export ledger",
	Long: `Check that every file recorded in the export ledger still exists and has
not been modified since it was written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger()
		if err != nil {
			return err
		}
		problems, err := l.Verify()
		if err != nil {
			return err
		}
		if len(problems) == 0 {
			_, _ = fmt.Fprint(os.Stderr, color.GreenString("All %d recorded files are intact.\n", l.Len()))
			return nil
		}
		for _, p := range problems {
			_, _ = fmt.Fprintf(os.Stderr, "%s %s: %s\n",
				color.RedString("✗"), color.CyanString(p.Entry.File), p.Reason)
		}
		return ledger.ErrVerifyFailed
	},
}
