// Package benchmark measures indexing and query throughput of the ranking
// engine.
package benchmark

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
)

var vocabulary = strings.Fields(`search engine ranking distributed index query
term frequency document corpus linked list node pointer structure data
storage efficient complexity operation traverse memory cache shard token`)

func syntheticCorpus(n, wordsPerDoc int) []index.Document {
	rng := rand.New(rand.NewSource(1))
	docs := make([]index.Document, n)
	var sb strings.Builder
	for i := range docs {
		sb.Reset()
		for w := 0; w < wordsPerDoc; w++ {
			if w > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(vocabulary[rng.Intn(len(vocabulary))])
		}
		docs[i] = index.Document{ID: i, Text: sb.String()}
	}
	return docs
}

func BenchmarkMemoryIndexAdd(b *testing.B) {
	docs := syntheticCorpus(10000, 40)
	mi := index.NewMemoryIndex()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		doc := docs[i%len(docs)]
		doc.ID = i
		mi.Add(doc)
	}
}

func BenchmarkMemoryIndexAddDuplicate(b *testing.B) {
	mi := index.NewMemoryIndex()
	doc := index.Document{ID: 1, Text: "linked list data structure"}
	mi.Add(doc)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.Add(doc)
	}
}

func BenchmarkEngineIndexAll(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		docs := syntheticCorpus(size, 40)
		b.Run(fmt.Sprintf("docs_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				engine := indexer.NewEngine(nil)
				engine.IndexAll(docs...)
			}
		})
	}
}
