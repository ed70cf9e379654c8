// Package trending keeps the singleton trending snapshot in sync with the
// external chart source.
package trending

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"melodex/internal/catalog"
	"melodex/internal/core"
)

type Synchronizer struct {
	extractor   core.ChartExtractor
	resolver    *catalog.Resolver
	repo        core.TrendingRepo
	chartURL    string
	maxHints    int
	parallelism int
	logger      *zap.Logger
}

func NewSynchronizer(
	extractor core.ChartExtractor,
	resolver *catalog.Resolver,
	repo core.TrendingRepo,
	chartURL string,
	cfg *core.SyncConfig,
	logger *zap.Logger,
) *Synchronizer {
	return &Synchronizer{
		extractor:   extractor,
		resolver:    resolver,
		repo:        repo,
		chartURL:    chartURL,
		maxHints:    cfg.MaxHints,
		parallelism: cfg.Parallelism,
		logger:      logger,
	}
}

// Synchronize runs one full refresh: extract hints, resolve them in
// parallel, dedupe in hint order, and replace the whole snapshot. A failed
// extraction leaves the previous snapshot untouched. Per-hint resolution
// failures only shrink the result. Overlapping runs race benignly; the
// later replace wins.
func (s *Synchronizer) Synchronize(ctx context.Context) (core.SyncSummary, error) {
	started := time.Now()

	hints, err := s.extractor.Extract(ctx, s.chartURL)
	if err != nil {
		return core.SyncSummary{}, fmt.Errorf("chart extraction: %w", err)
	}
	if len(hints) > s.maxHints {
		hints = hints[:s.maxHints]
	}

	resolved := s.resolver.ResolveBatch(ctx, hints, s.parallelism)

	tracks := make([]core.Track, 0, len(resolved))
	for _, track := range resolved {
		if track != nil {
			tracks = append(tracks, *track)
		}
	}
	tracks = catalog.Dedupe(tracks)

	snap := &core.TrendingSnapshot{
		Songs:     tracks,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Replace(ctx, snap); err != nil {
		return core.SyncSummary{}, fmt.Errorf("snapshot replace: %w", err)
	}

	s.logger.Info("Trending snapshot refreshed",
		zap.Int("hints", len(hints)),
		zap.Int("tracks", len(tracks)),
		zap.Duration("took", time.Since(started)))

	return core.SyncSummary{Count: len(tracks), UpdatedAt: snap.UpdatedAt}, nil
}

// Snapshot returns the current snapshot's tracks, empty before the first run.
func (s *Synchronizer) Snapshot(ctx context.Context) ([]core.Track, error) {
	snap, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Songs, nil
}
