// Package indexer owns the in-memory corpus and exposes the indexing side
// of the ranking engine.
package indexer

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/metrics"
)

type Engine struct {
	memIndex *index.MemoryIndex
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewEngine creates an empty engine. m may be nil.
func NewEngine(m *metrics.Metrics) *Engine {
	return &Engine{
		memIndex: index.NewMemoryIndex(),
		metrics:  m,
		logger:   slog.Default().With("component", "indexer"),
	}
}

// Index adds doc to the corpus. It reports false, and changes nothing, when
// the id is already present.
func (e *Engine) Index(doc index.Document) bool {
	gen, added := e.memIndex.Insert(doc)
	if !added {
		e.logger.Debug("document already indexed, skipping", "doc_id", doc.ID)
		if e.metrics != nil {
			e.metrics.DocsDuplicateTotal.Inc()
		}
		return false
	}
	e.logger.Debug("document indexed", "doc_id", doc.ID, "generation", gen)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
		e.metrics.IndexDocumentCount.Set(float64(e.memIndex.DocCount()))
		e.metrics.IndexTermCount.Set(float64(e.memIndex.TermCount()))
	}
	return true
}

// IndexAll indexes docs in order and returns how many were new.
func (e *Engine) IndexAll(docs ...index.Document) int {
	added := 0
	for _, doc := range docs {
		if e.Index(doc) {
			added++
		}
	}
	if len(docs) > 0 {
		e.logger.Info("batch indexed",
			"submitted", len(docs),
			"added", added,
			"index_size", e.IndexSize(),
		)
	}
	return added
}

// IndexSize returns the number of documents in the corpus.
func (e *Engine) IndexSize() int {
	return e.memIndex.DocCount()
}

// Generation identifies the current corpus contents. Cached results are
// keyed by it.
func (e *Engine) Generation() index.Generation {
	return e.memIndex.Generation()
}

// Document returns the stored document with id.
func (e *Engine) Document(id int) (index.Document, bool) {
	var (
		doc   index.Document
		found bool
	)
	e.memIndex.Read(func(r index.Reader) {
		if td, ok := r.Document(id); ok {
			doc, found = td.Document(), true
		}
	})
	return doc, found
}

func (e *Engine) Stats() index.Stats {
	return e.memIndex.Stats()
}

// Read runs fn against a consistent view of the corpus.
func (e *Engine) Read(fn func(r index.Reader)) {
	e.memIndex.Read(fn)
}

func (e *Engine) Snapshot() []index.TermEntry {
	return e.memIndex.Snapshot()
}
