// Package consumer indexes documents arriving on the ingest topic.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/kafka"
)

// HandleMessage returns a handler that decodes each IndexEvent and adds its
// document to engine. Undecodable or invalid events are skipped so they do
// not block the partition; duplicates are accepted and ignored.
func HandleMessage(engine *indexer.Engine) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IndexEvent](value)
		if err != nil {
			logger.Error("failed to decode index event", "key", string(key), "error", err)
			return err
		}
		doc := event.Document()
		if err := validator.ValidateDocument(doc); err != nil {
			logger.Error("invalid index event", "doc_id", doc.ID, "error", err)
			return fmt.Errorf("%w: document %d: %v", kafka.ErrSkip, doc.ID, err)
		}
		if engine.Index(doc) {
			logger.Debug("document indexed from event",
				"doc_id", doc.ID,
				"ingested_at", event.IngestedAt,
			)
		}
		return nil
	}
}
