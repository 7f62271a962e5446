package executor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/metrics"
)

var (
	anaDoc1 = index.Document{ID: 1, Text: "Ana are mere"}
	anaDoc2 = index.Document{ID: 2, Text: "Ana Ana Ana Ana Ana Ana Ana Ana"}

	linkedListDocs = []index.Document{
		{ID: 1, Text: "A linked list is a fundamental data structure which consists of Nodes that are connected to each other."},
		{ID: 2, Text: "The Linked List data structure permits the storage of data in an efficient manner."},
		{ID: 3, Text: "The space and time complexity of the linked list operations depends on the implementation."},
		{ID: 4, Text: "The operations that take O(N) time takes this much because you have to traverse the list’s for at least N nodes in order to perform it successfully. On the other hand, operations that take O(1) time do not require any traversals because the list holds pointers to the head first Node and tail last Node."},
	}
)

func newExecutor(t *testing.T, docs ...index.Document) (*Executor, *indexer.Engine) {
	t.Helper()
	engine := indexer.NewEngine(nil)
	engine.IndexAll(docs...)
	return New(engine, ranker.NewScorer(ranker.DefaultParams()), nil), engine
}

func ids(results []ranker.ScoredDoc) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Document.ID
	}
	return out
}

func TestTermQuery(t *testing.T) {
	exec, _ := newExecutor(t, anaDoc1, anaDoc2)

	results := exec.TermQuery("Ana")
	require.Len(t, results, 2)
	assert.Equal(t, anaDoc2, results[0].Document)
	assert.InDelta(t, 0.4936823874431607, results[0].Score, 1e-12)
	assert.Equal(t, anaDoc1, results[1].Document)
	assert.InDelta(t, 0.3133956394555762, results[1].Score, 1e-12)

	mere := exec.TermQuery("mere")
	require.Len(t, mere, 1)
	assert.Equal(t, anaDoc1, mere[0].Document)
	assert.InDelta(t, 0.8491490237651933, mere[0].Score, 1e-12)

	assert.Empty(t, exec.TermQuery("batman"))
}

func TestTermQueryCaseInsensitive(t *testing.T) {
	exec, _ := newExecutor(t, anaDoc1, anaDoc2)
	assert.Equal(t, exec.TermQuery("ana"), exec.TermQuery("Ana"))
	assert.Equal(t, exec.TermQuery("ana"), exec.TermQuery("ANA"))
}

func TestTermQueryEmptyCorpus(t *testing.T) {
	exec, _ := newExecutor(t)
	assert.Empty(t, exec.TermQuery("anything"))
	assert.Empty(t, exec.TermsQuery("anything", "else"))
	assert.Empty(t, exec.TermsQuery())
}

func TestTermsQueryLinkedList(t *testing.T) {
	exec, _ := newExecutor(t, linkedListDocs...)

	results := exec.TermsQuery("linked", "list", "complexity")
	require.Len(t, results, 4)
	assert.Equal(t, linkedListDocs[2], results[0].Document)
	assert.InDelta(t, 1.8201189421708297, results[0].Score, 1e-12)
	assert.Equal(t, []int{3, 2, 1, 4}, ids(results))
	assert.InDelta(t, 1.0593511879537962, results[1].Score, 1e-12)
	assert.InDelta(t, 1.0485444582640417, results[2].Score, 1e-12)
	assert.InDelta(t, 0.7917445303927513, results[3].Score, 1e-12)
}

func TestTermsQueryDoesNotAlterIndex(t *testing.T) {
	exec, engine := newExecutor(t, linkedListDocs...)
	before := engine.Snapshot()

	first := exec.TermsQuery("linked", "list", "complexity")
	second := exec.TermsQuery("linked", "list", "complexity")

	assert.Equal(t, before, engine.Snapshot())
	assert.Equal(t, first, second)
	engine.Read(func(r index.Reader) {
		assert.Equal(t, 3, r.DocFrequency("linked"))
	})
}

func TestTermsQueryUnseenTermFiltersEverything(t *testing.T) {
	exec, _ := newExecutor(t, anaDoc1, anaDoc2)
	// An absent term contributes an infinite idf to every candidate.
	assert.Empty(t, exec.TermsQuery("ana", "batman"))
	assert.Empty(t, exec.TermsQuery("batman", "robin"))
}

func TestTermsQueryZeroTermFrequencyContributes(t *testing.T) {
	exec, _ := newExecutor(t, anaDoc1, anaDoc2)
	results := exec.TermsQuery("ana", "mere")
	require.Len(t, results, 2)

	// Document 2 lacks "mere" but still receives idf*delta for it.
	mereIDF := math.Log10(3.0 / 1.0)
	want := 0.4936823874431607 + mereIDF*ranker.DefaultDelta
	var got float64
	for _, r := range results {
		if r.Document.ID == 2 {
			got = r.Score
		}
	}
	assert.InDelta(t, want, got, 1e-12)
	assert.Equal(t, []int{1, 2}, ids(results))
}

func TestTermsQueryUnionMatchesTermQueries(t *testing.T) {
	exec, _ := newExecutor(t, linkedListDocs...)
	union := map[int]struct{}{}
	for _, r := range exec.TermQuery("complexity") {
		union[r.Document.ID] = struct{}{}
	}
	for _, r := range exec.TermQuery("data") {
		union[r.Document.ID] = struct{}{}
	}
	want := make([]int, 0, len(union))
	for id := range union {
		want = append(want, id)
	}
	sort.Ints(want)

	got := ids(exec.TermsQuery("complexity", "data"))
	sort.Ints(got)
	assert.Equal(t, want, got)
}

func TestSingleTermQueriesAgree(t *testing.T) {
	exec, _ := newExecutor(t, anaDoc1, anaDoc2)
	assert.Equal(t, exec.TermQuery("ana"), exec.TermsQuery("ana"))
}

func TestResultsOrderedAndFinite(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocab := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}
	docs := make([]index.Document, 0, 200)
	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(12)
		text := ""
		for j := 0; j < n; j++ {
			text += vocab[rng.Intn(len(vocab))] + " "
		}
		docs = append(docs, index.Document{ID: i, Text: text})
	}
	exec, _ := newExecutor(t, docs...)

	check := func(results []ranker.ScoredDoc) {
		for i, r := range results {
			assert.True(t, ranker.IsFinite(r.Score))
			if i > 0 {
				prev := results[i-1]
				assert.GreaterOrEqual(t, prev.Score, r.Score)
				if prev.Score == r.Score {
					assert.Less(t, prev.Document.ID, r.Document.ID)
				}
			}
		}
	}
	for _, term := range vocab {
		check(exec.TermQuery(term))
	}
	check(exec.TermsQuery("alpha", "gamma"))
	check(exec.TermsQuery(vocab...))
}

func TestEqualScoresTieBreakByID(t *testing.T) {
	exec, _ := newExecutor(t,
		index.Document{ID: 30, Text: "same words"},
		index.Document{ID: 10, Text: "same words"},
		index.Document{ID: 20, Text: "same words"},
	)
	assert.Equal(t, []int{10, 20, 30}, ids(exec.TermQuery("same")))
}

func TestExecute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	engine := indexer.NewEngine(nil)
	engine.IndexAll(linkedListDocs...)
	exec := New(engine, ranker.NewScorer(ranker.DefaultParams()), m)

	result, err := exec.Execute(context.Background(), parser.Parse("Linked List complexity"), 2)
	require.NoError(t, err)
	assert.Equal(t, "Linked List complexity", result.Query)
	assert.Equal(t, []string{"linked", "list", "complexity"}, result.Terms)
	assert.Equal(t, 4, result.TotalHits)
	assert.Equal(t, []int{3, 2}, ids(result.Results))
	assert.Equal(t, engine.Generation(), result.Generation)
	assert.Equal(t, 4, result.Generation.DocCount)

	single, err := exec.Execute(context.Background(), parser.Parse("complexity"), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, ids(single.Results))

	empty, err := exec.Execute(context.Background(), parser.Parse("batman"), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalHits)
	assert.NotNil(t, empty.Results)

	none, err := exec.Execute(context.Background(), parser.Parse("!!"), 10)
	require.NoError(t, err)
	assert.Empty(t, none.Results)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))
}

func TestExecuteCancelledContext(t *testing.T) {
	exec, _ := newExecutor(t, anaDoc1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := exec.Execute(ctx, parser.Parse("ana"), 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentIndexAndQuery(t *testing.T) {
	exec, engine := newExecutor(t)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			engine.Index(index.Document{ID: i, Text: fmt.Sprintf("shared token%d", i%13)})
		}
	}()
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				for _, r := range exec.TermsQuery("shared", "token3") {
					assert.True(t, ranker.IsFinite(r.Score))
				}
				result, err := exec.Execute(context.Background(), parser.Parse("shared"), 0)
				if assert.NoError(t, err) {
					// Every indexed document contains "shared".
					assert.Equal(t, result.Generation.DocCount, result.TotalHits)
				}
			}
		}()
	}
	wg.Wait()
	assert.Len(t, exec.TermQuery("shared"), 500)
}
