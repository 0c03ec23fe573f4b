package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fboranek/mocksetup/pkg/history"
)

// RunHistory prints the most recent runs, and the steps of each when
// steps is set.
func RunHistory(store *history.Store, limit int, steps bool, w io.Writer) error {
	runs, err := store.ListRuns(limit, 0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTAGE\tSTATUS\tDURATION\tPID\tERROR")
	for _, r := range runs {
		duration := "-"
		if r.CompletedAt != nil {
			duration = r.Duration().String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(r.ID), r.StartedAt.Local().Format(time.DateTime), r.Stage,
			r.Status, duration, r.FixturePID, r.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !steps {
		return nil
	}
	for _, r := range runs {
		ss, err := store.Steps(r.ID)
		if err != nil {
			return fmt.Errorf("failed to list steps: %w", err)
		}
		fmt.Fprintf(w, "\n%s:\n", shortID(r.ID))
		for _, s := range ss {
			fmt.Fprintf(w, "  %-20s %-10s %s", s.Action, s.Status, s.Duration)
			if s.Error != "" {
				fmt.Fprintf(w, "  %s", s.Error)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}
