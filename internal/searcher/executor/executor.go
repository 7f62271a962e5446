// Package executor is the query engine: it looks terms up in the inverted
// index, scores every candidate with BM25+, and returns finite scores in
// ranked order.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/tracing"
)

type SearchResult struct {
	Query      string             `json:"query"`
	Terms      []string           `json:"terms"`
	TotalHits  int                `json:"total_hits"`
	Results    []ranker.ScoredDoc `json:"results"`
	Generation index.Generation   `json:"generation"`
}

type Executor struct {
	engine  *indexer.Engine
	scorer  *ranker.Scorer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Executor over engine. m may be nil.
func New(engine *indexer.Engine, scorer *ranker.Scorer, m *metrics.Metrics) *Executor {
	return &Executor{
		engine:  engine,
		scorer:  scorer,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// TermQuery ranks the documents containing term.
func (e *Executor) TermQuery(term string) []ranker.ScoredDoc {
	var results []ranker.ScoredDoc
	e.engine.Read(func(r index.Reader) {
		results = e.termQuery(r, strings.ToLower(term))
	})
	return results
}

// TermsQuery ranks the documents containing any of terms by the sum of
// their per-term scores.
func (e *Executor) TermsQuery(terms ...string) []ranker.ScoredDoc {
	normalized := lowerAll(terms)
	var results []ranker.ScoredDoc
	e.engine.Read(func(r index.Reader) {
		results = e.termsQuery(r, normalized)
	})
	return results
}

// Execute runs plan under a single consistent view of the index and trims
// the ranking to limit when limit > 0.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("executing query %q: %w", plan.RawQuery, err)
	}
	_, span := tracing.StartChildSpan(ctx, "execute")
	defer span.End()
	start := time.Now()
	terms := lowerAll(plan.Terms)

	queryType := "terms"
	if len(terms) == 1 {
		queryType = "term"
	}

	ranked := []ranker.ScoredDoc{}
	var generation index.Generation
	e.engine.Read(func(r index.Reader) {
		generation = r.Generation()
		switch len(terms) {
		case 0:
		case 1:
			ranked = e.termQuery(r, terms[0])
		default:
			ranked = e.termsQuery(r, terms)
		}
	})

	totalHits := len(ranked)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	elapsed := time.Since(start)
	span.SetAttr("total_hits", totalHits)
	span.SetAttr("generation", generation.String())

	if e.metrics != nil {
		resultType := "hit"
		if totalHits == 0 {
			resultType = "zero_result"
		}
		e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		e.metrics.SearchLatency.WithLabelValues(queryType).Observe(elapsed.Seconds())
		e.metrics.SearchResultsCount.Observe(float64(len(ranked)))
	}
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", terms,
		"total_hits", totalHits,
		"returned", len(ranked),
		"generation", generation.String(),
		"latency", elapsed,
	)
	return &SearchResult{
		Query:      plan.RawQuery,
		Terms:      terms,
		TotalHits:  totalHits,
		Results:    ranked,
		Generation: generation,
	}, nil
}

func (e *Executor) termQuery(r index.Reader, term string) []ranker.ScoredDoc {
	postings, ok := r.Postings(term)
	if !ok {
		return []ranker.ScoredDoc{}
	}
	stats := r.Stats()
	df := len(postings)
	results := make([]ranker.ScoredDoc, 0, df)
	for docID := range postings {
		doc, ok := r.Document(docID)
		if !ok {
			continue
		}
		results = append(results, ranker.ScoredDoc{
			Score:    e.scorer.RSV(term, doc, df, stats),
			Document: doc.Document(),
		})
	}
	return ranker.Rank(results)
}

func (e *Executor) termsQuery(r index.Reader, terms []string) []ranker.ScoredDoc {
	candidates := unionPostings(r, terms)
	if len(candidates) == 0 {
		return []ranker.ScoredDoc{}
	}
	stats := r.Stats()
	docFreqs := make([]int, len(terms))
	for i, term := range terms {
		docFreqs[i] = r.DocFrequency(term)
	}
	results := make([]ranker.ScoredDoc, 0, len(candidates))
	for docID := range candidates {
		doc, ok := r.Document(docID)
		if !ok {
			continue
		}
		var score float64
		for i, term := range terms {
			score += e.scorer.RSV(term, doc, docFreqs[i], stats)
		}
		results = append(results, ranker.ScoredDoc{
			Score:    score,
			Document: doc.Document(),
		})
	}
	return ranker.Rank(results)
}

// unionPostings collects candidate ids into a fresh set; the index's own
// posting sets are never written.
func unionPostings(r index.Reader, terms []string) map[int]struct{} {
	result := make(map[int]struct{})
	for _, term := range terms {
		postings, ok := r.Postings(term)
		if !ok {
			continue
		}
		for docID := range postings {
			result[docID] = struct{}{}
		}
	}
	return result
}

func lowerAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}
