// Command loader publishes a JSON-lines corpus to the document ingest topic.
//
// Every running searcher consumes the topic, so loading once populates all
// replicas. With --persist the documents are also written to PostgreSQL so a
// searcher started later can bootstrap from the database.
//
// Usage:
//
//	go run ./cmd/loader --file docs.jsonl [--config configs/development.yaml] [--batch-size 500] [--persist]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/postgres"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to YAML config file")
	file := pflag.StringP("file", "f", "", "JSON-lines corpus to publish")
	batchSize := pflag.Int("batch-size", 500, "documents per Kafka write")
	persist := pflag.Bool("persist", false, "also store documents in PostgreSQL")
	pflag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		pflag.Usage()
		os.Exit(2)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, *file, *batchSize, *persist); err != nil {
		slog.Error("load failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, file string, batchSize int, persist bool) error {
	docs, err := source.NewFileSource(file).Load(ctx)
	if err != nil {
		return err
	}

	var db *postgres.Client
	if persist {
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()
	pub := publisher.New(producer, db)

	published := 0
	for _, batch := range chunk(docs, batchSize) {
		if err := pub.Publish(ctx, batch); err != nil {
			return fmt.Errorf("after %d of %d documents: %w", published, len(docs), err)
		}
		published += len(batch)
	}
	slog.Info("corpus published",
		"file", file,
		"documents", published,
		"topic", cfg.Kafka.Topics.DocumentIngest,
	)
	return nil
}

// chunk splits docs into batches no larger than size, capped at the
// validator's batch limit.
func chunk(docs []index.Document, size int) [][]index.Document {
	if size <= 0 || size > validator.MaxBatchSize {
		size = validator.MaxBatchSize
	}
	var out [][]index.Document
	for len(docs) > 0 {
		n := min(size, len(docs))
		out = append(out, docs[:n])
		docs = docs[n:]
	}
	return out
}
