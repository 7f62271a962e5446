package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
)

// StatsOutput is the JSON form of the stats command.
type StatsOutput struct {
	index.Stats
	TermCount int         `json:"term_count"`
	TopTerms  []TermCount `json:"top_terms"`
}

type TermCount struct {
	Term         string `json:"term"`
	DocFrequency int    `json:"doc_frequency"`
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		top        int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(cmd.Context(), root.file)
			if err != nil {
				return err
			}
			out := buildStats(engine.Stats(), engine.Snapshot(), top)
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "documents:    %d\n", out.DocCount)
			fmt.Fprintf(w, "tokens:       %d\n", out.TotalTokens)
			fmt.Fprintf(w, "mean length:  %g\n", out.MeanDocLength)
			fmt.Fprintf(w, "terms:        %d\n", out.TermCount)
			for _, tc := range out.TopTerms {
				fmt.Fprintf(w, "  %-20s %d\n", tc.Term, tc.DocFrequency)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&top, "top", 10, "number of most common terms to list")
	return cmd
}

// buildStats orders terms by document frequency, then alphabetically.
func buildStats(stats index.Stats, entries []index.TermEntry, top int) StatsOutput {
	terms := make([]TermCount, len(entries))
	for i, e := range entries {
		terms[i] = TermCount{Term: e.Term, DocFrequency: len(e.DocIDs)}
	}
	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].DocFrequency > terms[j].DocFrequency
	})
	if top >= 0 && len(terms) > top {
		terms = terms[:top]
	}
	return StatsOutput{Stats: stats, TermCount: len(entries), TopTerms: terms}
}
