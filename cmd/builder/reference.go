package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"mushaf/internal/corpus"
)

type referenceRow struct {
	Surah  int `json:"surah"`
	Verses int `json:"verses"`
}

func (a *app) newReferenceCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Print the reference verse count of every surah",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := corpus.DefaultReference()
			rows := make([]referenceRow, 0, ref.TotalChapters)
			for _, id := range ref.ChapterIDs() {
				n, _ := ref.Verses(id)
				rows = append(rows, referenceRow{Surah: id, Verses: n})
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					TotalSurahs int            `json:"total_surahs"`
					TotalVerses int            `json:"total_verses"`
					Surahs      []referenceRow `json:"surahs"`
				}{ref.TotalChapters, ref.TotalVerses, rows})
			}

			for _, r := range rows {
				fmt.Fprintf(a.out, "%3d  %3d\n", r.Surah, r.Verses)
			}
			fmt.Fprintf(a.out, "Total: %d surahs, %d verses\n", ref.TotalChapters, ref.TotalVerses)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
