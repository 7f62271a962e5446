// Package ranker implements BM25+ relevance scoring.
//
// The formula follows Lv & Zhai, "Lower-bounding term frequency
// normalization" (CIKM 2011), with the IDF variant log10((N+1)/df).
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
)

const (
	DefaultK1    = 1.6
	DefaultB     = 0.3
	DefaultDelta = 0.7
)

// Params are the BM25+ tuning parameters.
type Params struct {
	K1    float64 `yaml:"k1"`
	B     float64 `yaml:"b"`
	Delta float64 `yaml:"delta"`
}

func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB, Delta: DefaultDelta}
}

// ScoredDoc is one ranked result.
type ScoredDoc struct {
	Score    float64        `json:"score"`
	Document index.Document `json:"document"`
}

// Scorer computes retrieval status values. It is stateless apart from its
// parameters and safe for concurrent use.
type Scorer struct {
	params Params
}

func NewScorer(params Params) *Scorer {
	return &Scorer{params: params}
}

func (s *Scorer) Params() Params {
	return s.params
}

// RSV scores one term against one document. A zero df yields +Inf; callers
// drop non-finite scores before returning results.
func (s *Scorer) RSV(term string, doc *index.TokenizedDocument, df int, stats index.Stats) float64 {
	idf := computeIDF(stats.DocCount, df)
	tf := float64(doc.TermFrequency(term))
	return idf * s.computeTFNorm(tf, float64(doc.Len()), stats.MeanDocLength)
}

func computeIDF(docCount int, docFreq int) float64 {
	return math.Log10(float64(docCount+1) / float64(docFreq))
}

func (s *Scorer) computeTFNorm(termFreq float64, docLength float64, meanDocLength float64) float64 {
	k1, b := s.params.K1, s.params.B
	lengthRatio := docLength / meanDocLength
	denominator := k1*((1-b)+b*lengthRatio) + termFreq
	return ((k1+1)*termFreq)/denominator + s.params.Delta
}

// IsFinite reports whether score is neither infinite nor NaN.
func IsFinite(score float64) bool {
	return !math.IsInf(score, 0) && !math.IsNaN(score)
}

// Rank drops non-finite scores and sorts by descending score, breaking ties
// by ascending document id. The input slice is reused.
func Rank(results []ScoredDoc) []ScoredDoc {
	kept := results[:0]
	for _, r := range results {
		if IsFinite(r.Score) {
			kept = append(kept, r)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Document.ID < kept[j].Document.ID
	})
	return kept
}
