// Command indexer folds batch files from a spool directory into the barrel
// index: it runs the Forward-Index Builder, then the Barrel Merger, and
// announces the new snapshot on Kafka when enabled.
//
// Usage:
//
//	go run ./cmd/indexer -spool ./spool [-watch] [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	spool := flag.String("spool", "", "directory of batch files to index (required)")
	watch := flag.Bool("watch", false, "keep polling the spool directory")
	interval := flag.Duration("interval", 0, "poll interval in watch mode (default from config)")
	flag.Parse()

	if *spool == "" {
		fmt.Fprintln(os.Stderr, "-spool is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *spool, *watch, *interval); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
	slog.Info("indexer stopped")
}

func run(ctx context.Context, cfg *config.Config, spool string, watch bool, interval time.Duration) error {
	var opts []pipeline.Option
	if cfg.Metrics.Enabled {
		opts = append(opts, pipeline.WithMetrics(metrics.New()))
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		opts = append(opts, pipeline.WithPublisher(producer))
		slog.Info("index-complete events enabled", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	p, err := pipeline.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	slog.Info("starting indexer",
		"spool", spool,
		"data_dir", cfg.Store.DataDir,
		"registry", cfg.Indexer.RegistryBackend,
		"watch", watch,
	)
	if watch {
		return p.Watch(ctx, spool, interval)
	}

	res, err := p.Run(ctx, spool)
	if err != nil {
		return err
	}
	if ferr := res.Index.Failures(); ferr != nil {
		slog.Warn("some batches failed", "error", ferr)
	}
	slog.Info("indexing complete",
		"trace_id", res.TraceID,
		"added", res.Index.Added,
		"words", res.Index.Words,
		"published", res.Published,
	)
	return nil
}
