package index

import "github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/tokenizer"

// Document is the unit of indexing. Two documents with the same ID are the
// same logical document.
type Document struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// TokenizedDocument pairs a Document with its token sequence. The tokens are
// computed once at construction and never change.
type TokenizedDocument struct {
	doc    Document
	tokens []string
}

// NewTokenizedDocument tokenizes doc.Text.
func NewTokenizedDocument(doc Document) *TokenizedDocument {
	return &TokenizedDocument{
		doc:    doc,
		tokens: tokenizer.Tokenize(doc.Text),
	}
}

// Document returns the source document.
func (t *TokenizedDocument) Document() Document {
	return t.doc
}

// Tokens returns the token sequence. Callers must not modify it.
func (t *TokenizedDocument) Tokens() []string {
	return t.tokens
}

// Len is the document length in tokens.
func (t *TokenizedDocument) Len() int {
	return len(t.tokens)
}

// TermFrequency counts the positions equal to term.
func (t *TokenizedDocument) TermFrequency(term string) int {
	n := 0
	for _, token := range t.tokens {
		if token == term {
			n++
		}
	}
	return n
}

// Equal compares by document id only.
func (t *TokenizedDocument) Equal(other *TokenizedDocument) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.doc.ID == other.doc.ID
}
