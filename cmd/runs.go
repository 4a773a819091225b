package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent enrichment runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum runs to list")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	rlog, err := runlog.Open(cfg.RunLog.Path)
	if err != nil {
		return err
	}
	defer rlog.Close()
	if err := rlog.Migrate(cmd.Context()); err != nil {
		return err
	}

	runs, err := rlog.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tITEMS\tBATCHES\tDEFAULTED\tDUPS\tTOKENS\tCOST\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t$%.4f\t%s\n",
			truncateID(r.ID),
			r.Status,
			r.Items,
			r.Batches,
			r.DefaultedItems,
			r.DuplicateIDs,
			r.PromptTokens+r.CompletionTokens,
			r.CostUSD,
			r.StartedAt.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
