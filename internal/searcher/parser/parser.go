// Package parser turns a raw query string into the term list the executor
// scores. There is no boolean or phrase syntax: every word is a term.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/tokenizer"
)

type QueryPlan struct {
	Terms    []string
	RawQuery string
}

// Parse splits query on whitespace and normalises each word the same way
// documents are tokenized. Words with no letters or digits are dropped.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:    make([]string, 0),
		RawQuery: query,
	}
	for _, word := range strings.Fields(query) {
		term := tokenizer.Normalize(word)
		if term == "" {
			continue
		}
		plan.Terms = append(plan.Terms, term)
	}
	return plan
}

// FromTerms builds a plan from terms that are already separated.
func FromTerms(terms ...string) *QueryPlan {
	plan := &QueryPlan{
		Terms:    make([]string, 0, len(terms)),
		RawQuery: strings.Join(terms, " "),
	}
	for _, t := range terms {
		plan.Terms = append(plan.Terms, strings.ToLower(t))
	}
	return plan
}
