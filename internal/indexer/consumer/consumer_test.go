package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/kafka"
)

func encode(t *testing.T, doc index.Document) []byte {
	t.Helper()
	data, err := json.Marshal(ingestion.NewIndexEvent(doc, time.Now()))
	require.NoError(t, err)
	return data
}

func TestHandleMessageIndexes(t *testing.T) {
	engine := indexer.NewEngine(nil)
	handle := HandleMessage(engine)
	ctx := context.Background()

	require.NoError(t, handle(ctx, []byte("1"), encode(t, index.Document{ID: 1, Text: "Ana are mere"})))
	require.NoError(t, handle(ctx, []byte("1"), encode(t, index.Document{ID: 1, Text: "replay"})))
	require.NoError(t, handle(ctx, []byte("2"), encode(t, index.Document{ID: 2, Text: "Ana"})))

	assert.Equal(t, 2, engine.IndexSize())
	engine.Read(func(r index.Reader) {
		doc, ok := r.Document(1)
		require.True(t, ok)
		assert.Equal(t, "Ana are mere", doc.Document().Text)
	})
}

func TestHandleMessageSkipsBadEvents(t *testing.T) {
	engine := indexer.NewEngine(nil)
	handle := HandleMessage(engine)
	ctx := context.Background()

	assert.ErrorIs(t, handle(ctx, nil, []byte("not json")), kafka.ErrSkip)
	assert.ErrorIs(t, handle(ctx, nil, encode(t, index.Document{ID: -2, Text: "x"})), kafka.ErrSkip)
	assert.Zero(t, engine.IndexSize())
}
