// Command analytics aggregates the search events published by searcher
// replicas and the index-complete events published by the indexer, and
// serves the totals at GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081] [-persist]
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
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8081, "HTTP port")
	persist := flag.Bool("persist", false, "snapshot stats to PostgreSQL")
	interval := flag.Duration("snapshot-interval", time.Minute, "snapshot interval with -persist")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if !cfg.Kafka.Enabled {
		slog.Error("analytics service requires kafka (set kafka.enabled or BS_KAFKA_BROKERS)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *port, *persist, *interval); err != nil {
		slog.Error("analytics service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}

func run(ctx context.Context, cfg *config.Config, port int, persist bool, interval time.Duration) error {
	agg := analytics.NewAggregator(nil)
	handle := analytics.HandleEvent(agg)
	searchEvents := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, handle)
	indexEvents := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, handle,
		kafka.WithGroupID(cfg.Kafka.ConsumerGroup+"-analytics"))

	checker := health.NewChecker()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return searchEvents.Start(gctx) })
	g.Go(func() error { return indexEvents.Start(gctx) })

	if persist {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		store, err := aggregator.NewStore(ctx, db)
		if err != nil {
			return err
		}
		checker.Register("postgres", health.PingCheck(db.Ping))
		g.Go(func() error { return store.Run(gctx, agg, interval) })
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      middleware.Chain(mux, middleware.RequestID, middleware.Logging),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		slog.Info("analytics service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
