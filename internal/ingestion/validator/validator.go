// Package validator checks documents before they are published or indexed.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
)

const (
	MaxTextLength = 1 << 20
	MaxBatchSize  = 1000
)

// ValidationError holds per-field failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

// ValidateDocument rejects negative ids and oversized text. Empty text is
// accepted; it simply produces no postings.
func ValidateDocument(doc index.Document) error {
	errs := make(map[string]string)
	checkDocument(doc, "", errs)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateBatch validates every document, prefixing field names with the
// document's position.
func ValidateBatch(docs []index.Document) error {
	errs := make(map[string]string)
	if len(docs) == 0 {
		errs["documents"] = "at least one document is required"
	} else if len(docs) > MaxBatchSize {
		errs["documents"] = fmt.Sprintf("at most %d documents per request", MaxBatchSize)
	}
	for i, doc := range docs {
		checkDocument(doc, fmt.Sprintf("documents[%d].", i), errs)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkDocument(doc index.Document, prefix string, errs map[string]string) {
	if doc.ID < 0 {
		errs[prefix+"id"] = "id must be non-negative"
	}
	if len(doc.Text) > MaxTextLength {
		errs[prefix+"text"] = fmt.Sprintf("text must be at most %d bytes", MaxTextLength)
	}
}
