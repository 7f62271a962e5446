package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// Stats aggregates per-request outcomes from all workers.
type Stats struct {
	mu          sync.Mutex
	total       int64
	failures    int64
	cacheHits   int64
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 1<<16),
		statusCodes: make(map[int]int64),
	}
}

// Record notes one request. statusCode is 0 when the request never got a
// response.
func (s *Stats) Record(latency time.Duration, statusCode int, cacheHit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.statusCodes[statusCode]++
	if statusCode < 200 || statusCode >= 300 {
		s.failures++
		return
	}
	if cacheHit {
		s.cacheHits++
	}
	s.latencies = append(s.latencies, latency)
}

// Summary is a point-in-time view of Stats.
type Summary struct {
	Total       int64
	Failures    int64
	CacheHits   int64
	Min, Max    time.Duration
	Mean        time.Duration
	StdDev      time.Duration
	P50, P90    time.Duration
	P95, P99    time.Duration
	StatusCodes map[int]int64
}

func (s *Stats) Summary() Summary {
	s.mu.Lock()
	latencies := append([]time.Duration(nil), s.latencies...)
	sum := Summary{
		Total:       s.total,
		Failures:    s.failures,
		CacheHits:   s.cacheHits,
		StatusCodes: make(map[int]int64, len(s.statusCodes)),
	}
	for code, n := range s.statusCodes {
		sum.StatusCodes[code] = n
	}
	s.mu.Unlock()

	if len(latencies) == 0 {
		return sum
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	sum.Mean = total / time.Duration(len(latencies))
	var sq float64
	for _, l := range latencies {
		d := float64(l - sum.Mean)
		sq += d * d
	}
	sum.StdDev = time.Duration(math.Sqrt(sq / float64(len(latencies))))
	sum.Min = latencies[0]
	sum.Max = latencies[len(latencies)-1]
	sum.P50 = percentile(latencies, 50)
	sum.P90 = percentile(latencies, 90)
	sum.P95 = percentile(latencies, 95)
	sum.P99 = percentile(latencies, 99)
	return sum
}

// WriteReport prints sum for a run that lasted elapsed.
func (sum Summary) WriteReport(w io.Writer, elapsed time.Duration) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", sum.Total)
	fmt.Fprintf(w, "Failed:          %d\n", sum.Failures)
	if sum.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(sum.Failures)/float64(sum.Total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(sum.Total)/elapsed.Seconds())
	}
	if ok := sum.Total - sum.Failures; ok > 0 {
		fmt.Fprintf(w, "Cache Hit Rate:  %.1f%%\n", float64(sum.CacheHits)/float64(ok)*100)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", sum.Min)
		fmt.Fprintf(w, "Mean:   %s\n", sum.Mean)
		fmt.Fprintf(w, "P50:    %s\n", sum.P50)
		fmt.Fprintf(w, "P90:    %s\n", sum.P90)
		fmt.Fprintf(w, "P95:    %s\n", sum.P95)
		fmt.Fprintf(w, "P99:    %s\n", sum.P99)
		fmt.Fprintf(w, "Max:    %s\n", sum.Max)
		fmt.Fprintf(w, "StdDev: %s\n", sum.StdDev)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(sum.StatusCodes))
	for code := range sum.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		label := fmt.Sprint(code)
		if code == 0 {
			label = "err"
		}
		fmt.Fprintf(w, "  %s: %d\n", label, sum.StatusCodes[code])
	}
}

// percentile uses the nearest-rank method on sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
