package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"editorial-cache/internal/storage"
)

type exportDocument struct {
	ExportedAt  time.Time             `json:"exported_at"`
	Journal     string                `json:"journal,omitempty"`
	Referees    []*storage.Referee    `json:"referees"`
	Manuscripts []*storage.Manuscript `json:"manuscripts"`
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		journal string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "export [--journal J] [-o file]",
		Short: "Exports cached referees and manuscripts as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			ctx := cmd.Context()
			doc := exportDocument{
				ExportedAt:  time.Now().UTC(),
				Journal:     journal,
				Referees:    []*storage.Referee{},
				Manuscripts: []*storage.Manuscript{},
			}

			referees, err := a.Store.ListReferees(ctx, journal)
			if err != nil {
				return err
			}
			manuscripts, err := a.Store.ListManuscripts(ctx, storage.ManuscriptFilter{Journal: journal})
			if err != nil {
				return err
			}
			doc.Referees = append(doc.Referees, referees...)
			doc.Manuscripts = append(doc.Manuscripts, manuscripts...)

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}

			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d referees and %d manuscripts to %s\n",
					len(doc.Referees), len(doc.Manuscripts), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&journal, "journal", "j", "", "Only export this journal")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
