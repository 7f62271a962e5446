package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/ranker"
)

const snippetLength = 60

func newQueryCmd(root *rootOptions) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
		params     = ranker.DefaultParams()
	)
	cmd := &cobra.Command{
		Use:   "query <term>...",
		Short: "Rank documents for one or more terms",
		Long: `Rank every document containing at least one of the terms. With several
terms a document's score is the sum of its per-term scores.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(cmd.Context(), root.file)
			if err != nil {
				return err
			}
			exec := executor.New(engine, ranker.NewScorer(params), nil)
			result, err := exec.Execute(cmd.Context(), parser.Parse(strings.Join(args, " ")), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return printResults(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results to print (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().Float64Var(&params.K1, "k1", ranker.DefaultK1, "term frequency saturation")
	cmd.Flags().Float64Var(&params.B, "b", ranker.DefaultB, "length normalisation")
	cmd.Flags().Float64Var(&params.Delta, "delta", ranker.DefaultDelta, "lower bound on a matching term's contribution")
	return cmd
}

func printResults(w io.Writer, result *executor.SearchResult) error {
	if len(result.Results) == 0 {
		_, err := fmt.Fprintf(w, "no results for %q\n", result.Query)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tID\tTEXT")
	for i, r := range result.Results {
		fmt.Fprintf(tw, "%d\t%.6f\t%d\t%s\n", i+1, r.Score, r.Document.ID, snippet(r.Document.Text))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d matching documents\n", len(result.Results), result.TotalHits)
	return err
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength-3]) + "..."
}
