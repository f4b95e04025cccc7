package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var defaultQueries = []string{
	"river fishing",
	"mountain lake",
	"barrel index",
	"search engine",
	"history of computing",
	"lighthouse keeper",
	"forest birds",
	"ocean currents",
	"ancient trade routes",
	"solar power",
}

type loadConfig struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	limit       int
	queries     []string
}

// loadStats is shared by all workers.
type loadStats struct {
	mu          sync.Mutex
	total       int64
	errors      int64
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newLoadStats() *loadStats {
	return &loadStats{statusCodes: make(map[int]int64)}
}

func (s *loadStats) record(d time.Duration, status int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if err != nil {
		s.errors++
		return
	}
	if status < 200 || status >= 300 {
		s.errors++
	}
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
}

func loadtestCmd() *cobra.Command {
	cfg := loadConfig{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send concurrent queries to a running search service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.concurrency < 1 {
				return fmt.Errorf("concurrency must be positive")
			}
			if len(cfg.queries) == 0 {
				cfg.queries = defaultQueries
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "target %s, %d workers, %s\n", cfg.baseURL, cfg.concurrency, cfg.duration)
			stats, err := runLoad(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printLoadReport(w, stats, cfg.duration)
			if stats.total == 0 {
				return fmt.Errorf("no requests completed; is the service running?")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "base URL of the search service")
	f.IntVar(&cfg.concurrency, "concurrency", 10, "number of concurrent workers")
	f.DurationVar(&cfg.duration, "duration", 30*time.Second, "test duration")
	f.IntVar(&cfg.limit, "limit", 10, "limit parameter sent with each query")
	f.StringSliceVar(&cfg.queries, "query", nil, "query to send (repeatable; defaults to a built-in set)")
	return cmd
}

func runLoad(ctx context.Context, cfg loadConfig) (*loadStats, error) {
	stats := newLoadStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.concurrency * 2,
			MaxIdleConnsPerHost: cfg.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, cfg.duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.concurrency; w++ {
		worker := w
		g.Go(func() error {
			for i := worker; ctx.Err() == nil; i++ {
				q := cfg.queries[i%len(cfg.queries)]
				target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", cfg.baseURL, url.QueryEscape(q), cfg.limit)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				d := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					stats.record(d, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(d, resp.StatusCode, nil)
			}
			return nil
		})
	}
	return stats, g.Wait()
}

func printLoadReport(w io.Writer, s *loadStats, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(w, "requests: %d  errors: %d", s.total, s.errors)
	if s.total > 0 {
		fmt.Fprintf(w, "  error rate: %.2f%%  rps: %.1f",
			float64(s.errors)/float64(s.total)*100, float64(s.total)/duration.Seconds())
	}
	fmt.Fprintln(w)

	if len(s.latencies) > 0 {
		lat := append([]time.Duration(nil), s.latencies...)
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		var sum time.Duration
		for _, l := range lat {
			sum += l
		}
		fmt.Fprintf(w, "latency min %s  avg %s  p50 %s  p95 %s  p99 %s  max %s\n",
			lat[0], sum/time.Duration(len(lat)),
			percentile(lat, 50), percentile(lat, 95), percentile(lat, 99), lat[len(lat)-1])
	}

	codes := make([]int, 0, len(s.statusCodes))
	for c := range s.statusCodes {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	for _, c := range codes {
		fmt.Fprintf(w, "  %d: %d\n", c, s.statusCodes[c])
	}
}

// percentile uses the nearest-rank method on sorted.
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
