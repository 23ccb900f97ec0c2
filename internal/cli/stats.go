package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"editorial-cache/internal/common/utils"
)

const recentRuns = 5

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Shows row counts, cache tier usage and recent extraction runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			counts, err := a.Store.Counts(ctx)
			if err != nil {
				return err
			}
			journals, err := a.Store.Journals(ctx)
			if err != nil {
				return err
			}
			runs, err := a.Store.ListExtractionRuns(ctx, "", recentRuns)
			if err != nil {
				return err
			}

			dbSize := "-"
			if info, err := os.Stat(a.DatabasePath); err == nil {
				dbSize = humanize.Bytes(uint64(info.Size()))
			}

			fmt.Fprintf(out, "Database: %s (%s)\n", a.DatabasePath, dbSize)
			fmt.Fprintf(out, "Journals: %s\n", orDash(strings.Join(journals, ", ")))
			fmt.Fprintf(out, "Promotion TTL: %s, purge after: %s\n",
				utils.FormatDuration(opts.config.PromotionTTLDuration()),
				utils.FormatDuration(opts.config.PurgeAfterDuration()))

			t := newTable(out)
			t.AppendHeader(table.Row{"Table", "Rows"})
			t.AppendRows([]table.Row{
				{"referees", counts.Referees},
				{"manuscripts", counts.Manuscripts},
				{"institutions", counts.Institutions},
				{"referee_metrics", counts.RefereeMetrics},
				{"journal_statistics", counts.JournalStatistics},
				{"extraction_runs", counts.ExtractionRuns},
			})
			t.Render()

			stats := a.Cache.Stats()
			remote := "disabled"
			if stats.Remote.Enabled && a.RedisClient != nil {
				remote = "enabled"
				if keys, err := a.RedisClient.Count(ctx); err == nil {
					remote = fmt.Sprintf("%d keys", keys)
				}
			}

			t = newTable(out)
			t.AppendHeader(table.Row{"Tier", "Hits", "Misses", "Usage"})
			t.AppendRows([]table.Row{
				{"memory", stats.Memory.Hits, stats.Memory.Misses,
					fmt.Sprintf("%d/%d entries, %d evicted", stats.Memory.Entries, stats.Memory.MaxEntries, stats.Memory.Evictions)},
				{"store", stats.Store.Hits, stats.Store.Misses, "-"},
				{"blob", stats.Blob.Hits, stats.Blob.Misses,
					fmt.Sprintf("%d files, %s", stats.Blob.Files, humanize.Bytes(uint64(stats.Blob.Bytes)))},
				{"remote", stats.Remote.Hits, stats.Remote.Misses, remote},
			})
			t.Render()

			if len(runs) == 0 {
				return nil
			}

			t = newTable(out)
			t.AppendHeader(table.Row{"Run", "Journal", "Started", "Extracted", "New", "Updated", "Errors"})
			for _, run := range runs {
				t.AppendRow(table.Row{
					run.RunID[:8], run.Journal, ago(run.StartTime),
					run.ManuscriptsExtracted, run.NewManuscripts, run.UpdatedManuscripts, run.Errors,
				})
			}
			t.Render()
			return nil
		},
	}
}
