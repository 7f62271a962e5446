// Package publisher sends validated documents to the ingest topic, storing
// them in PostgreSQL first when a database is configured.
package publisher

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/resilience"
)

// Producer is satisfied by *kafka.Producer.
type Producer interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Publisher struct {
	producer Producer
	db       *postgres.Client
	retry    resilience.RetryConfig
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Publisher. db may be nil.
func New(producer Producer, db *postgres.Client) *Publisher {
	return &Publisher{
		producer: producer,
		db:       db,
		retry: resilience.RetryConfig{
			MaxAttempts:    4,
			InitialDelay:   250 * time.Millisecond,
			MaxDelay:       5 * time.Second,
			JitterFraction: 0.2,
		},
		now:    time.Now,
		logger: slog.Default().With("component", "publisher"),
	}
}

// Publish validates docs, persists them, and publishes one IndexEvent per
// document keyed by id. Re-publishing a document is harmless: the index
// ignores ids it already holds.
func (p *Publisher) Publish(ctx context.Context, docs []index.Document) error {
	if err := validator.ValidateBatch(docs); err != nil {
		return err
	}
	if p.db != nil {
		if err := p.persist(ctx, docs); err != nil {
			return err
		}
	}
	now := p.now()
	events := make([]kafka.Event, len(docs))
	for i, doc := range docs {
		events[i] = kafka.Event{
			Key:   strconv.Itoa(doc.ID),
			Value: ingestion.NewIndexEvent(doc, now),
		}
	}
	err := resilience.Retry(ctx, "publish-documents", p.retry, func() error {
		return p.producer.PublishBatch(ctx, events)
	})
	if err != nil {
		return fmt.Errorf("publishing %d documents: %w", len(docs), err)
	}
	p.logger.Info("documents published", "count", len(docs))
	return nil
}

func (p *Publisher) persist(ctx context.Context, docs []index.Document) error {
	return p.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO documents (id, text) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for _, doc := range docs {
			if _, err := stmt.ExecContext(ctx, doc.ID, doc.Text); err != nil {
				return fmt.Errorf("inserting document %d: %w", doc.ID, err)
			}
		}
		return nil
	})
}
