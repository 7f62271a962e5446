package index

import "sort"

// PostingSet holds the ids of every document whose token sequence contains
// a term at least once. Frequencies are not stored.
type PostingSet map[int]struct{}

// Contains reports whether docID is in the set.
func (p PostingSet) Contains(docID int) bool {
	_, ok := p[docID]
	return ok
}

// IDs returns the document ids in ascending order.
func (p PostingSet) IDs() []int {
	ids := make([]int, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// TermEntry is one row of an index snapshot.
type TermEntry struct {
	Term   string `json:"term"`
	DocIDs []int  `json:"doc_ids"`
}

// Stats are the corpus-wide aggregates used by the scorer.
type Stats struct {
	DocCount      int     `json:"doc_count"`
	TotalTokens   int     `json:"total_tokens"`
	MeanDocLength float64 `json:"mean_doc_length"`
}
