package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"editorial-cache/internal/common/errors"
)

func newPopulateStatsCommand(opts *rootOptions) *cobra.Command {
	var (
		journal string
		days    int
	)

	cmd := &cobra.Command{
		Use:   "populate-stats [--journal J] [--days N]",
		Short: "Computes journal statistics from the cached manuscripts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return errors.ValidationError("--days must be a positive number")
			}

			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			ctx := cmd.Context()
			journals := []string{journal}
			if journal == "" {
				if journals, err = a.Store.Journals(ctx); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if len(journals) == 0 {
				fmt.Fprintln(out, "No manuscripts cached; nothing to compute")
				return nil
			}

			end := time.Now().UTC()
			start := end.Add(-time.Duration(days) * 24 * time.Hour)

			t := newTable(out)
			t.AppendHeader(table.Row{"Journal", "Submissions", "Accepted", "Desk rejected", "Avg review (days)"})
			for _, j := range journals {
				stats, err := a.Store.ComputeJournalStatistics(ctx, j, start, end)
				if err != nil {
					return fmt.Errorf("failed to compute statistics for %s: %w", j, err)
				}
				t.AppendRow(table.Row{
					stats.JournalID, stats.TotalSubmissions,
					percent(stats.AcceptanceRate), percent(stats.DeskRejectionRate),
					fmt.Sprintf("%.1f", stats.AverageReviewTime),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&journal, "journal", "j", "", "Only compute this journal")
	cmd.Flags().IntVar(&days, "days", 365, "Length of the statistics period ending now")
	return cmd
}
