package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	LookupRatio int
	LookupBatch int
	Words       []string
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	notFound      atomic.Int64
	rateLimited   atomic.Int64
	latencies     map[string][]time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make(map[string][]time.Duration),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(endpoint string, duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		s.successCount.Add(1)
	case statusCode == http.StatusTooManyRequests:
		s.rateLimited.Add(1)
	default:
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies[endpoint] = append(s.latencies[endpoint], duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

// discoverReply is the subset of the discover response the load test reads.
type discoverReply struct {
	Found    bool `json:"found"`
	CacheHit bool `json:"cache_hit"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the lexicon service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	lookupRatio := flag.Int("lookup-every", 5, "send a batch lookup every Nth request, 0 disables")
	lookupBatch := flag.Int("lookup-batch", 3, "words per batch lookup")
	words := flag.String("words", "", "comma-separated words, defaults to a built-in list")
	flag.Parse()

	list := []string{
		"كتاب", "الكِتابُ", "كَتَبَ", "مكتبة", "يكتبون",
		"ذهب", "ذَهَبَ", "المذاهب",
		"علم", "العُلَماء", "معلم",
		"قلم", "بالقلم",
		"سيارة", "حاسوب",
	}
	if *words != "" {
		list = strings.Split(*words, ",")
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		LookupRatio: *lookupRatio,
		LookupBatch: max(*lookupBatch, 1),
		Words:       list,
	}

	fmt.Println("=== Lexicon Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Words:       %d unique\n", len(cfg.Words))
	fmt.Println()

	stats := runLoadTest(cfg)
	printReport(stats, cfg.Duration)
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			n := workerID

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				n++
				if cfg.LookupRatio > 0 && n%cfg.LookupRatio == 0 {
					lookup(ctx, client, cfg, n, stats)
				} else {
					discover(ctx, client, cfg, cfg.Words[n%len(cfg.Words)], stats)
				}
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func discover(ctx context.Context, client *http.Client, cfg Config, word string, stats *Stats) {
	target := fmt.Sprintf("%s/api/v1/discover?word=%s", cfg.BaseURL, url.QueryEscape(word))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.RecordRequest("discover", duration, 0, err)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var reply discoverReply
		if json.NewDecoder(resp.Body).Decode(&reply) == nil {
			if reply.CacheHit {
				stats.cacheHits.Add(1)
			}
			if !reply.Found {
				stats.notFound.Add(1)
			}
		}
	}
	io.Copy(io.Discard, resp.Body)
	stats.RecordRequest("discover", duration, resp.StatusCode, nil)
}

func lookup(ctx context.Context, client *http.Client, cfg Config, n int, stats *Stats) {
	words := make([]string, cfg.LookupBatch)
	for i := range words {
		words[i] = cfg.Words[(n+i)%len(cfg.Words)]
	}
	body, err := json.Marshal(map[string][]string{"words": words})
	if err != nil {
		panic(fmt.Sprintf("encoding lookup: %v", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/api/v1/lookup", bytes.NewReader(body))
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.RecordRequest("lookup", duration, 0, err)
		}
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	stats.RecordRequest("lookup", duration, resp.StatusCode, nil)
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)
	fmt.Printf("Rate Limited:    %d\n", stats.rateLimited.Load())
	fmt.Printf("Cache Hits:      %d\n", stats.cacheHits.Load())
	fmt.Printf("Not Found:       %d\n", stats.notFound.Load())

	if total > 0 {
		errorRate := float64(errors) / float64(total) * 100
		fmt.Printf("Error Rate:      %.2f%%\n", errorRate)
		rps := float64(total) / duration.Seconds()
		fmt.Printf("Requests/sec:    %.2f\n", rps)
	}

	stats.latenciesMu.Lock()
	endpoints := make([]string, 0, len(stats.latencies))
	for e := range stats.latencies {
		endpoints = append(endpoints, e)
	}
	sort.Strings(endpoints)
	for _, e := range endpoints {
		printLatency(e, stats.latencies[e])
	}
	stats.latenciesMu.Unlock()

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func printLatency(endpoint string, samples []time.Duration) {
	if len(samples) == 0 {
		return
	}
	latencies := make([]time.Duration, len(samples))
	copy(latencies, samples)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg := sum / time.Duration(len(latencies))

	fmt.Println()
	fmt.Printf("=== Latency: %s (%d) ===\n", endpoint, len(latencies))
	fmt.Printf("Min:    %s\n", latencies[0])
	fmt.Printf("Avg:    %s\n", avg)
	fmt.Printf("P50:    %s\n", percentile(latencies, 50))
	fmt.Printf("P95:    %s\n", percentile(latencies, 95))
	fmt.Printf("P99:    %s\n", percentile(latencies, 99))
	fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])

	var sumSquared float64
	avgFloat := float64(avg)
	for _, l := range latencies {
		diff := float64(l) - avgFloat
		sumSquared += diff * diff
	}
	fmt.Printf("StdDev: %s\n", time.Duration(math.Sqrt(sumSquared/float64(len(latencies)))))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
