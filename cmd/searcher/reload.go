package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/store/docindex"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/kafka"
)

// snapshot swaps in a fresh lexicon and document registry after the
// pipeline publishes a new index or rewrites the lexicon file.
type snapshot struct {
	cfg     *config.Config
	engine  *engine.Engine
	exec    *executor.Executor
	cache   *cache.QueryCache
	tracker analytics.Tracker
	openReg func(ctx context.Context, cfg *config.Config) (docindex.Registry, error)
	logger  *slog.Logger

	mu         sync.Mutex
	registry   docindex.Registry
	generation uint64
}

func (s *snapshot) load(ctx context.Context) error {
	if err := s.engine.Reload(); err != nil {
		return err
	}
	reg, err := s.openReg(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("opening document registry: %w", err)
	}
	s.exec.SetResolver(reg)

	s.mu.Lock()
	old := s.registry
	s.registry = reg
	s.generation = s.engine.Generation()
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	s.logger.Info("index snapshot loaded", "words", s.engine.Words(), "documents", reg.Len())
	return nil
}

// refresh reloads the snapshot when the lexicon file changed on disk, or a
// search already swapped the engine's lexicon without the registry and cache
// following, and reports whether it did.
func (s *snapshot) refresh(ctx context.Context) (bool, error) {
	stale, err := s.engine.Stale()
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	behind := s.generation != s.engine.Generation()
	s.mu.Unlock()
	if !stale && !behind {
		return false, nil
	}
	return true, s.load(ctx)
}

// watch polls for merges that arrive without an index-complete event.
func (s *snapshot) watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.refresh(ctx); err != nil {
				s.logger.Warn("snapshot refresh failed", "error", err)
			}
		}
	}
}

// handleIndexComplete is the kafka handler for the index-complete topic.
func (s *snapshot) handleIndexComplete(ctx context.Context, key, value []byte) error {
	event, err := kafka.DecodeJSON[analytics.IndexEvent](value)
	if err != nil {
		s.logger.Error("skipping malformed index-complete event", "error", err)
		return nil
	}
	if event.Type != analytics.EventIndexComplete {
		return nil
	}
	s.logger.Info("index-complete received", "trace_id", event.TraceID, "added", event.Added)
	if err := s.load(ctx); err != nil {
		return err
	}
	if s.tracker != nil {
		s.tracker.Track(event)
	}
	return nil
}

func (s *snapshot) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		return nil
	}
	return s.registry.Close()
}
