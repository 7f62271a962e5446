// Package cmd implements the bm25 command tree.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/logger"
)

type rootOptions struct {
	file     string
	logLevel string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "bm25",
		Short: "Rank documents with BM25+",
		Long: `bm25 indexes a JSON-lines file of {"id":..,"text":..} objects in memory
and answers ranked queries against it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetupWriter(cmd.ErrOrStderr(), opts.logLevel, "text")
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "JSON-lines corpus to index (required)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	cmd.MarkPersistentFlagRequired("file")

	cmd.AddCommand(newQueryCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	return cmd
}

func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func loadEngine(ctx context.Context, path string) (*indexer.Engine, error) {
	engine := indexer.NewEngine(nil)
	if _, err := source.LoadInto(ctx, source.NewFileSource(path), engine); err != nil {
		return nil, err
	}
	return engine, nil
}
