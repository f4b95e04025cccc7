// Command searcher serves ranked search over the inverted barrels.
//
// It holds the lexicon snapshot in memory, resolves fingerprints through the
// document registry, caches results in Redis when enabled, and reloads its
// snapshot whenever the indexer publishes an index-complete event.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/store/docindex"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Store.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	eng, err := engine.Open(cfg.Store.LexiconPath(), cfg.Store.InvertedPath(),
		engine.WithPostingsPerTerm(cfg.Search.PostingsPerTerm))
	if err != nil {
		return err
	}
	exec := executor.New(eng, nil)

	checker := health.NewChecker()
	checker.Register("lexicon", health.PathCheck(cfg.Store.LexiconPath(), false, false))
	checker.Register("inverted_barrels", health.PathCheck(cfg.Store.InvertedPath(), true, false))

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
			})
			queryCache = cache.New(cache.NewGuardedStore(redisClient, breaker), cfg.Redis, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	// Search events go to Kafka for the analytics service when it is
	// available; otherwise they are aggregated here.
	var (
		tracker    analytics.Tracker
		aggregator *analytics.Aggregator
		collector  *analytics.Collector
	)
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, 10000)
		collector.Start(ctx)
		tracker = collector
	} else {
		aggregator = analytics.NewAggregator(nil)
		tracker = aggregator
	}

	snap := &snapshot{
		cfg:     cfg,
		engine:  eng,
		exec:    exec,
		cache:   queryCache,
		tracker: tracker,
		openReg: docindex.Open,
		logger:  logger.WithComponent("snapshot"),
	}
	if err := snap.load(ctx); err != nil {
		return err
	}
	defer snap.close()

	h := handler.New(exec, queryCache, tracker, cfg.Search, m)
	mux := http.NewServeMux()
	h.Register(mux)
	if aggregator != nil {
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	middlewares := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Logging}
	if m != nil {
		middlewares = append(middlewares, middleware.Metrics(m))
	}
	if cfg.Server.RateLimit > 0 {
		middlewares = append(middlewares, middleware.RateLimit(middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)))
	}
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, middlewares...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.Search.ReloadInterval > 0 {
		g.Go(func() error { return snap.watch(gctx, cfg.Search.ReloadInterval) })
	}
	if cfg.Kafka.Enabled {
		hostname, _ := os.Hostname()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, snap.handleIndexComplete,
			kafka.WithGroupID(fmt.Sprintf("%s-searcher-%s", cfg.Kafka.ConsumerGroup, hostname)))
		g.Go(func() error { return consumer.Start(gctx) })
	}

	err = g.Wait()
	if collector != nil {
		collector.Close()
	}
	return err
}
