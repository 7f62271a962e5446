package index

import (
	"sort"
	"sync"
)

// Reader is a consistent, read-only view of a MemoryIndex. It is only valid
// inside the callback passed to MemoryIndex.Read; posting sets and documents
// obtained from it must not be modified or retained.
type Reader interface {
	Postings(term string) (PostingSet, bool)
	Document(docID int) (*TokenizedDocument, bool)
	DocFrequency(term string) int
	Stats() Stats
	Generation() Generation
}

// MemoryIndex is the corpus store and inverted index. Inserts are
// idempotent per document id and serialised under a single writer lock;
// readers share a read lock for the duration of one Read call.
type MemoryIndex struct {
	mu          sync.RWMutex
	docs        map[int]*TokenizedDocument
	postings    map[string]PostingSet
	totalTokens int
	meanDocLen  float64
	fingerprint uint64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		docs:     make(map[int]*TokenizedDocument),
		postings: make(map[string]PostingSet),
	}
}

// Add indexes doc and reports whether it was new. Re-adding a known id
// changes nothing.
func (m *MemoryIndex) Add(doc Document) bool {
	_, added := m.Insert(doc)
	return added
}

// Insert is Add that also returns the generation as of this call: the one
// this insert produced, or the current one for a duplicate id.
func (m *MemoryIndex) Insert(doc Document) (Generation, bool) {
	m.mu.RLock()
	_, exists := m.docs[doc.ID]
	gen := m.generationLocked()
	m.mu.RUnlock()
	if exists {
		return gen, false
	}

	tokenized := NewTokenizedDocument(doc)
	hash := documentHash(doc)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[doc.ID]; exists {
		return m.generationLocked(), false
	}
	m.docs[doc.ID] = tokenized
	m.fingerprint += hash
	m.totalTokens += tokenized.Len()
	// Integer division before widening: the running mean is truncated.
	m.meanDocLen = float64(m.totalTokens / len(m.docs))

	for _, term := range tokenized.Tokens() {
		set, ok := m.postings[term]
		if !ok {
			set = make(PostingSet)
			m.postings[term] = set
		}
		set[doc.ID] = struct{}{}
	}
	return m.generationLocked(), true
}

// AddAll adds docs in order and returns how many were new. For duplicate
// ids the first document wins.
func (m *MemoryIndex) AddAll(docs ...Document) int {
	added := 0
	for _, doc := range docs {
		if m.Add(doc) {
			added++
		}
	}
	return added
}

// Read runs fn under the read lock with a consistent view of the index.
func (m *MemoryIndex) Read(fn func(r Reader)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(view{m})
}

// Search returns the ids of documents containing term, ascending. The term
// must already be normalised.
func (m *MemoryIndex) Search(term string) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.postings[term]
	if !ok {
		return nil
	}
	return set.IDs()
}

// Snapshot returns every term with its posting ids, sorted by term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.postings))
	for term, set := range m.postings {
		entries = append(entries, TermEntry{
			Term:   term,
			DocIDs: set.IDs(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// TermCount is the vocabulary size.
func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.postings)
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked()
}

func (m *MemoryIndex) Generation() Generation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generationLocked()
}

func (m *MemoryIndex) generationLocked() Generation {
	return Generation{DocCount: len(m.docs), Fingerprint: m.fingerprint}
}

func (m *MemoryIndex) statsLocked() Stats {
	return Stats{
		DocCount:      len(m.docs),
		TotalTokens:   m.totalTokens,
		MeanDocLength: m.meanDocLen,
	}
}

type view struct {
	m *MemoryIndex
}

func (v view) Postings(term string) (PostingSet, bool) {
	set, ok := v.m.postings[term]
	return set, ok
}

func (v view) Document(docID int) (*TokenizedDocument, bool) {
	doc, ok := v.m.docs[docID]
	return doc, ok
}

func (v view) DocFrequency(term string) int {
	return len(v.m.postings[term])
}

func (v view) Stats() Stats {
	return v.m.statsLocked()
}

func (v view) Generation() Generation {
	return v.m.generationLocked()
}
