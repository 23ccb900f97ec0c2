package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"editorial-cache/internal/common/errors"
	"editorial-cache/internal/storage"
)

func newClearCommand(opts *rootOptions) *cobra.Command {
	var (
		days    int
		journal string
	)

	cmd := &cobra.Command{
		Use:   "clear [--days N] [--journal J]",
		Short: "Clears the cache tiers, or purges old manuscripts when filters are given.",
		Long: "Without flags, clear empties the memory tier, the blob directory and the remote tier.\n" +
			"With --days or --journal it instead removes manuscripts and extraction runs older\n" +
			"than N days (90 by default), optionally limited to one journal.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filtered := cmd.Flags().Changed("days") || cmd.Flags().Changed("journal")
			if filtered && days < 1 {
				return errors.ValidationError("--days must be a positive number")
			}

			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			out := cmd.OutOrStdout()
			if !filtered {
				result, err := a.Cache.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d memory entries, %d blob files and %d remote keys\n",
					result.MemoryEntries, result.BlobFiles, result.RemoteKeys)
				return nil
			}

			result, err := a.Store.Purge(cmd.Context(), storage.PurgeOptions{
				OlderThan: time.Duration(days) * 24 * time.Hour,
				Journal:   journal,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d manuscripts and %d extraction runs older than %d days\n",
				result.Manuscripts, result.ExtractionRuns, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 90, "Remove manuscripts extracted more than N days ago")
	cmd.Flags().StringVarP(&journal, "journal", "j", "", "Only purge this journal")
	return cmd
}
