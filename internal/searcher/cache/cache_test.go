package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/resilience"
)

func gen(n int) index.Generation {
	return index.Generation{DocCount: n, Fingerprint: uint64(n) * 0x9e3779b97f4a7c15}
}

func resultAt(generation int) *executor.SearchResult {
	return &executor.SearchResult{
		Query:     "ana",
		Terms:     []string{"ana"},
		TotalHits: 1,
		Results: []ranker.ScoredDoc{
			{Score: 0.5, Document: index.Document{ID: 1, Text: "Ana are mere"}},
		},
		Generation: gen(generation),
	}
}

func TestGetOrComputeCaches(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := New(NewLocalBackend(16, time.Minute), time.Minute, m)
	plan := parser.Parse("ana")
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return resultAt(2), nil
	}

	first, hit, err := c.GetOrCompute(context.Background(), plan, 10, gen(2), compute)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.GetOrCompute(context.Background(), plan, 10, gen(2), compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
}

func TestGenerationChangeMisses(t *testing.T) {
	c := New(NewLocalBackend(16, 0), 0, nil)
	plan := parser.Parse("ana")
	c.Set(context.Background(), plan, 10, resultAt(2))

	_, ok := c.Get(context.Background(), plan, 10, gen(2))
	assert.True(t, ok)
	_, ok = c.Get(context.Background(), plan, 10, gen(3))
	assert.False(t, ok)
	_, ok = c.Get(context.Background(), plan, 5, gen(2))
	assert.False(t, ok)
}

func TestSetUsesResultGeneration(t *testing.T) {
	c := New(NewLocalBackend(16, 0), 0, nil)
	plan := parser.Parse("ana")
	// Computed after a concurrent insert moved the corpus to generation 3.
	_, _, err := c.GetOrCompute(context.Background(), plan, 10, gen(2), func() (*executor.SearchResult, error) {
		return resultAt(3), nil
	})
	require.NoError(t, err)

	_, ok := c.Get(context.Background(), plan, 10, gen(2))
	assert.False(t, ok)
	_, ok = c.Get(context.Background(), plan, 10, gen(3))
	assert.True(t, ok)
}

func TestTermOrderIsPartOfKey(t *testing.T) {
	assert.NotEqual(t,
		buildKey([]string{"linked", "list"}, 10, gen(4)),
		buildKey([]string{"list", "linked"}, 10, gen(4)),
	)
	assert.Equal(t,
		buildKey(parser.Parse("Linked list").Terms, 10, gen(4)),
		buildKey(parser.Parse("linked  LIST").Terms, 10, gen(4)),
	)
}

func TestGetOrComputeError(t *testing.T) {
	c := New(NewLocalBackend(16, 0), 0, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), parser.Parse("ana"), 10, gen(1), func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGetOrComputeDeduplicates(t *testing.T) {
	c := New(NewLocalBackend(16, 0), 0, nil)
	plan := parser.Parse("ana")
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return resultAt(1), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, _, err := c.GetOrCompute(context.Background(), plan, 10, gen(1), compute)
			assert.NoError(t, err)
			assert.Equal(t, gen(1), result.Generation)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidate(t *testing.T) {
	c := New(NewLocalBackend(16, 0), 0, nil)
	plan := parser.Parse("ana")
	c.Set(context.Background(), plan, 10, resultAt(1))
	require.NoError(t, c.Invalidate(context.Background()))
	_, ok := c.Get(context.Background(), plan, 10, gen(1))
	assert.False(t, ok)
	assert.Equal(t, "local", c.Backend())
}

type failingBackend struct {
	gets atomic.Int32
}

func (f *failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	f.gets.Add(1)
	return nil, false, errors.New("connection refused")
}

func (f *failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (f *failingBackend) Clear(context.Context) (int64, error) { return 0, nil }

func (f *failingBackend) Name() string { return "failing" }

func TestBreakerBackendStopsCallingFailedBackend(t *testing.T) {
	inner := &failingBackend{}
	cb := resilience.NewCircuitBreaker("cache-test", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})
	c := New(NewBreakerBackend(inner, cb), 0, nil)
	plan := parser.Parse("ana")

	for i := 0; i < 5; i++ {
		_, ok := c.Get(context.Background(), plan, 10, gen(1))
		assert.False(t, ok)
	}
	assert.Equal(t, int32(2), inner.gets.Load())
	assert.Equal(t, resilience.StateOpen, cb.State())
	assert.Equal(t, "failing", c.Backend())

	result, hit, err := c.GetOrCompute(context.Background(), plan, 10, gen(1), func() (*executor.SearchResult, error) {
		return resultAt(1), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, gen(1), result.Generation)
}

func TestSharedBackendDistinguishesCorporaOfEqualSize(t *testing.T) {
	// One backend standing in for a Redis shared by two replicas.
	backend := NewLocalBackend(64, time.Minute)
	plan := parser.Parse("ana")

	search := func(docs ...index.Document) (*executor.SearchResult, bool) {
		engine := indexer.NewEngine(nil)
		engine.IndexAll(docs...)
		exec := executor.New(engine, ranker.NewScorer(ranker.DefaultParams()), nil)
		c := New(backend, time.Minute, nil)
		result, hit, err := c.GetOrCompute(context.Background(), plan, 10, engine.Generation(), func() (*executor.SearchResult, error) {
			return exec.Execute(context.Background(), plan, 10)
		})
		require.NoError(t, err)
		return result, hit
	}

	first, hit := search(
		index.Document{ID: 1, Text: "Ana are mere"},
		index.Document{ID: 2, Text: "pere"},
	)
	assert.False(t, hit)
	require.Len(t, first.Results, 1)

	second, hit := search(
		index.Document{ID: 5, Text: "nothing here"},
		index.Document{ID: 6, Text: "at all"},
	)
	assert.False(t, hit)
	assert.Empty(t, second.Results)

	again, hit := search(
		index.Document{ID: 2, Text: "pere"},
		index.Document{ID: 1, Text: "Ana are mere"},
	)
	assert.True(t, hit)
	assert.Equal(t, first, again)
}
