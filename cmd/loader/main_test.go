package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion/validator"
)

func TestChunk(t *testing.T) {
	docs := make([]index.Document, 7)
	for i := range docs {
		docs[i].ID = i
	}
	batches := chunk(docs, 3)
	assert.Len(t, batches, 3)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, 6, batches[2][0].ID)

	assert.Empty(t, chunk(nil, 3))
	assert.Len(t, chunk(make([]index.Document, validator.MaxBatchSize+1), 0), 2)
}
