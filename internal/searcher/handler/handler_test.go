package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/metrics"
)

type fakeExecutor struct {
	mu     sync.Mutex
	calls  int
	limits []int
	delay  time.Duration
}

func (f *fakeExecutor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error) {
	f.mu.Lock()
	f.calls++
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	res := &executor.SearchResult{Query: plan.RawQuery, Stems: plan.Terms, Results: []executor.Result{}}
	if plan.Terms[0] == "fish" {
		res.TotalHits = 1
		res.Results = append(res.Results, executor.Result{Fingerprint: 7, Score: 6, URL: "https://example.com/fish"})
	}
	return res, nil
}

type kvStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *kvStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *kvStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *kvStore) FlushByPattern(_ context.Context, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = map[string]string{}
	return n, nil
}

func searchConfig() config.SearchConfig {
	return config.SearchConfig{PostingsPerTerm: 30, DefaultLimit: 10, MaxResults: 50, Timeout: time.Second}
}

func get(t *testing.T, h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSearch(t *testing.T) {
	exec := &fakeExecutor{}
	agg := analytics.NewAggregator(nil)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	h := New(exec, nil, agg, searchConfig(), m)

	rec := get(t, h.Search, "/api/v1/search?q=Fishing&limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got executor.SearchResult
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Query != "Fishing" || len(got.Stems) != 1 || got.Stems[0] != "fish" {
		t.Errorf("query/stems = %q %v", got.Query, got.Stems)
	}
	if got.TotalHits != 1 || got.Results[0].URL != "https://example.com/fish" {
		t.Errorf("results = %+v", got)
	}
	if exec.limits[0] != 5 {
		t.Errorf("limit = %d, want 5", exec.limits[0])
	}
	if n := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")); n != 1 {
		t.Errorf("search_queries_total{hit} = %v", n)
	}
	if s := agg.Stats(); s.TotalSearches != 1 || s.TopQueries[0].Query != "Fishing" {
		t.Errorf("analytics = %+v", s)
	}
}

func TestSearchBadRequests(t *testing.T) {
	h := New(&fakeExecutor{}, nil, nil, searchConfig(), nil)
	tests := []struct {
		target string
		want   int
	}{
		{"/api/v1/search", http.StatusBadRequest},
		{"/api/v1/search?q=fish&limit=0", http.StatusBadRequest},
		{"/api/v1/search?q=fish&limit=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := get(t, h.Search, tt.target); rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.target, rec.Code, tt.want)
		}
	}

}

func TestRegisterRoutes(t *testing.T) {
	mux := http.NewServeMux()
	New(&fakeExecutor{}, nil, nil, searchConfig(), nil).Register(mux)

	tests := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/api/v1/search?q=fish", http.StatusOK},
		{http.MethodPost, "/api/v1/search?q=fish", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/cache/stats", http.StatusOK},
		{http.MethodGet, "/api/v1/cache/invalidate", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.target, rec.Code, tt.want)
		}
	}
}

func TestSearchLimitClamped(t *testing.T) {
	exec := &fakeExecutor{}
	h := New(exec, nil, nil, searchConfig(), nil)
	get(t, h.Search, "/api/v1/search?q=fish&limit=1000")
	get(t, h.Search, "/api/v1/search?q=fish")
	if exec.limits[0] != 50 || exec.limits[1] != 10 {
		t.Errorf("limits = %v, want [50 10]", exec.limits)
	}
}

func TestSearchOnlyStopwords(t *testing.T) {
	exec := &fakeExecutor{}
	h := New(exec, nil, nil, searchConfig(), nil)
	rec := get(t, h.Search, "/api/v1/search?q=the+and+of")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"results":[]`) {
		t.Errorf("body = %s", rec.Body)
	}
	if exec.calls != 0 {
		t.Error("executor should not run for an empty plan")
	}
}

func TestSearchTimeout(t *testing.T) {
	cfg := searchConfig()
	cfg.Timeout = 10 * time.Millisecond
	h := New(&fakeExecutor{delay: time.Second}, nil, nil, cfg, nil)
	rec := get(t, h.Search, "/api/v1/search?q=fish")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestSearchCached(t *testing.T) {
	exec := &fakeExecutor{}
	qc := cache.New(&kvStore{data: map[string]string{}}, config.RedisConfig{CacheTTL: time.Minute}, nil)
	h := New(exec, qc, nil, searchConfig(), nil)

	get(t, h.Search, "/api/v1/search?q=fish")
	rec := get(t, h.Search, "/api/v1/search?q=FISHING")
	if exec.calls != 1 {
		t.Errorf("executor calls = %d, want 1", exec.calls)
	}
	var got executor.SearchResult
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Query != "FISHING" || got.TotalHits != 1 {
		t.Errorf("cached result = %+v", got)
	}

	rec = get(t, h.CacheStats, "/api/v1/cache/stats")
	if !strings.Contains(rec.Body.String(), `"hits":1`) {
		t.Errorf("stats = %s", rec.Body)
	}

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("invalidate status = %d", rec.Code)
	}
	get(t, h.Search, "/api/v1/search?q=fish")
	if exec.calls != 2 {
		t.Errorf("executor calls after invalidate = %d, want 2", exec.calls)
	}
}

func TestCacheDisabled(t *testing.T) {
	h := New(&fakeExecutor{}, nil, nil, searchConfig(), nil)
	if rec := get(t, h.CacheStats, "/api/v1/cache/stats"); !strings.Contains(rec.Body.String(), "disabled") {
		t.Errorf("stats = %s", rec.Body)
	}
	rec := httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}
