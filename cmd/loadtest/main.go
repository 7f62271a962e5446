// Command loadtest drives concurrent queries against a running searcher
// and reports throughput, latency percentiles and cache hit rate.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/pflag"
)

var defaultQueries = []string{
	"linked list",
	"data structure",
	"linked list complexity",
	"time complexity",
	"nodes",
	"pointers head tail",
	"efficient storage",
	"operations traverse",
	"ana",
	"ana mere",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
}

func main() {
	cfg := Config{}
	pflag.StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "base URL of the searcher")
	pflag.IntVar(&cfg.Concurrency, "concurrency", 10, "number of concurrent workers")
	pflag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "test duration")
	pflag.IntVar(&cfg.Limit, "limit", 10, "limit parameter sent with each query")
	queryFile := pflag.String("queries", "", "file with one query per line (defaults to a built-in set)")
	pflag.Parse()

	cfg.Queries = defaultQueries
	if *queryFile != "" {
		queries, err := readQueries(*queryFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg.Queries = queries
	}

	fmt.Printf("Target: %s  concurrency=%d duration=%s queries=%d\n\n",
		cfg.BaseURL, cfg.Concurrency, cfg.Duration, len(cfg.Queries))

	start := time.Now()
	stats := run(context.Background(), cfg, newClient(cfg.Concurrency))
	summary := stats.Summary()
	summary.WriteReport(os.Stdout, time.Since(start))
	if summary.Total == summary.Failures {
		fmt.Fprintln(os.Stderr, "no successful requests; is the searcher running?")
		os.Exit(1)
	}
}

func newClient(concurrency int) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// run issues queries round-robin from every worker until cfg.Duration
// elapses or ctx is cancelled.
func run(ctx context.Context, cfg Config, client *http.Client) *Stats {
	stats := NewStats()
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; ctx.Err() == nil; i++ {
				query := cfg.Queries[i%len(cfg.Queries)]
				target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", cfg.BaseURL, url.QueryEscape(query), cfg.Limit)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats.Record(0, 0, false)
					return
				}
				start := time.Now()
				resp, err := client.Do(req)
				latency := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.Record(latency, 0, false)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.Record(latency, resp.StatusCode, resp.Header.Get("X-Cache") == "HIT")
			}
		}()
	}
	wg.Wait()
	return stats
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening queries: %w", err)
	}
	defer f.Close()
	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if q := strings.TrimSpace(scanner.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries in %s", path)
	}
	return queries, nil
}
