package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"editorial-cache/internal/storage"
)

func newRefereeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "referee <email>",
		Short: "Shows a cached referee and their affiliation history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			ref, err := a.Store.GetReferee(cmd.Context(), args[0])
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("referee %s is not cached", args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			t := newTable(out)
			t.AppendHeader(table.Row{"Field", "Value"})
			t.AppendRows([]table.Row{
				{"Email", ref.Email},
				{"Name", orDash(ref.Name)},
				{"Institution", orDash(ref.Institution)},
				{"Department", orDash(ref.Department)},
				{"Country", orDash(ref.Country)},
				{"ORCID", orDash(ref.ORCID)},
				{"Journals", orDash(strings.Join(ref.JournalsSeen, ", "))},
				{"Last seen", ago(ref.LastSeen)},
				{"Last updated", ago(ref.LastUpdated)},
			})
			t.Render()

			if len(ref.AffiliationsHistory) == 0 {
				return nil
			}

			t = newTable(out)
			t.SetTitle("Previous affiliations")
			t.AppendHeader(table.Row{"Institution", "Department", "Journal", "Until"})
			for _, aff := range ref.AffiliationsHistory {
				t.AppendRow(table.Row{aff.Institution, orDash(aff.Department), orDash(aff.Journal), ago(aff.Timestamp)})
			}
			t.Render()
			return nil
		},
	}
}

func newManuscriptCommand(opts *rootOptions) *cobra.Command {
	var (
		journal string
		full    bool
	)

	cmd := &cobra.Command{
		Use:   "manuscript <id> --journal <code> [--full]",
		Short: "Shows a cached manuscript.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			m, err := a.Store.GetManuscript(cmd.Context(), args[0], journal)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("manuscript %s is not cached for %s", args[0], journal)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if full {
				var doc interface{} = m
				if len(m.FullData) > 0 {
					doc = m.FullData
				}
				encoded, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(encoded))
				return nil
			}

			t := newTable(out)
			t.AppendHeader(table.Row{"Field", "Value"})
			t.AppendRows([]table.Row{
				{"ID", m.ID},
				{"Journal", m.Journal},
				{"Title", orDash(m.Title)},
				{"Status", orDash(m.Status)},
				{"Authors", orDash(strings.Join(m.Authors, ", "))},
				{"Submitted", orDash(m.SubmissionDate)},
				{"Last updated", orDash(m.LastUpdated)},
				{"Extracted", ago(m.ExtractionDate)},
				{"Referees", m.RefereeCount},
			})
			t.Render()

			if len(m.Referees) == 0 {
				return nil
			}

			t = newTable(out)
			t.AppendHeader(table.Row{"Referee", "Email", "Status"})
			for _, r := range m.Referees {
				t.AppendRow(table.Row{orDash(r.Name), orDash(r.Email), orDash(r.Status)})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&journal, "journal", "j", "", "Journal code, e.g. SICON")
	cmd.Flags().BoolVar(&full, "full", false, "Print the full stored record as JSON")
	_ = cmd.MarkFlagRequired("journal")
	return cmd
}
