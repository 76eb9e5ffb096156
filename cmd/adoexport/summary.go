package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aviator-co/adoexport/internal/export"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
)

var (
	successC = color.New(color.FgGreen)
	warningC = color.New(color.FgYellow)
	failureC = color.New(color.FgRed)
	faintC   = color.New(color.Faint)
)

func printReport(r *export.Report) {
	writeReport(os.Stderr, r)
}

func writeReport(w io.Writer, r *export.Report) {
	if c := r.Commits; c != nil {
		_, _ = fmt.Fprint(w, successC.Sprintf(
			"Commits: %s exported from %s, %s without matches",
			humanize.Comma(int64(c.Commits)),
			english.Plural(c.Written, "repository", "repositories"),
			humanize.Comma(int64(c.Empty)),
		))
		_, _ = fmt.Fprint(w, faintC.Sprintf(" (%s written)\n", humanize.Bytes(uint64(c.Bytes))))
		if c.Skipped > 0 {
			_, _ = fmt.Fprint(w, faintC.Sprintf("  %s already exported\n", english.Plural(c.Skipped, "repository", "repositories")))
		}
		if c.Missing > 0 {
			_, _ = fmt.Fprint(w, warningC.Sprintf("  %s could not be found\n", english.Plural(c.Missing, "repository", "repositories")))
		}
		if c.Failed > 0 {
			_, _ = fmt.Fprint(w, failureC.Sprintf("  %s failed (re-run to retry)\n", english.Plural(c.Failed, "repository", "repositories")))
		}
	}

	if wi := r.WorkItems; wi != nil {
		if wi.Skipped {
			_, _ = fmt.Fprint(w, faintC.Sprintf("Work items: already exported to %s\n", wi.Path))
			return
		}
		_, _ = fmt.Fprint(w, successC.Sprintf(
			"Work items: %s in %s",
			english.Plural(wi.Nodes, "work item", "work items"),
			english.Plural(wi.Roots, "tree", "trees"),
		))
		_, _ = fmt.Fprint(w, faintC.Sprintf(" (%s written to %s)\n", humanize.Bytes(uint64(wi.Bytes)), wi.Path))
		if wi.Orphans > 0 {
			_, _ = fmt.Fprint(w, warningC.Sprintf("  %s exported as roots because their parent was not found\n", english.Plural(wi.Orphans, "work item", "work items")))
		}
		if wi.Missing > 0 {
			_, _ = fmt.Fprint(w, warningC.Sprintf("  %s could not be fetched\n", english.Plural(wi.Missing, "work item", "work items")))
		}
	}
}
