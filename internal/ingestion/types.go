// Package ingestion defines the payloads that carry documents into the
// index: the HTTP request body and the Kafka event.
package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
)

// ErrEmptyBody is returned by DecodeDocuments for a blank request body.
var ErrEmptyBody = errors.New("request body is empty")

// IndexEvent is the Kafka message published for each accepted document.
type IndexEvent struct {
	DocumentID int       `json:"document_id"`
	Text       string    `json:"text"`
	IngestedAt time.Time `json:"ingested_at"`
}

func NewIndexEvent(doc index.Document, now time.Time) IndexEvent {
	return IndexEvent{DocumentID: doc.ID, Text: doc.Text, IngestedAt: now.UTC()}
}

func (e IndexEvent) Document() index.Document {
	return index.Document{ID: e.DocumentID, Text: e.Text}
}

// IndexResponse reports the outcome of an indexing request.
type IndexResponse struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	DocCount   int `json:"doc_count"`
}

// DecodeDocuments accepts either a single {"id":..,"text":..} object or an
// array of them.
func DecodeDocuments(data []byte) ([]index.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyBody
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if trimmed[0] == '[' {
		var docs []index.Document
		if err := dec.Decode(&docs); err != nil {
			return nil, fmt.Errorf("decoding document array: %w", err)
		}
		return docs, nil
	}
	var doc index.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return []index.Document{doc}, nil
}
