// Package source loads documents into the index at startup: from a JSON-lines
// file, which can also be watched for appended documents, or from the
// PostgreSQL documents table.
package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
)

type Source interface {
	Load(ctx context.Context) ([]index.Document, error)
	Name() string
}

// Sink is satisfied by *indexer.Engine.
type Sink interface {
	IndexAll(docs ...index.Document) int
}

// LoadInto loads src and indexes the result, returning how many documents
// were new to sink.
func LoadInto(ctx context.Context, src Source, sink Sink) (int, error) {
	docs, err := src.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading from %s: %w", src.Name(), err)
	}
	added := sink.IndexAll(docs...)
	slog.Default().Info("source loaded",
		"component", "source",
		"source", src.Name(),
		"read", len(docs),
		"indexed", added,
	)
	return added, nil
}
