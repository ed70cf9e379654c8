// Package catalog turns raw title hints into canonical tracks using the
// catalog of record, and hosts the curated browse lists.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"melodex/internal/cache"
	"melodex/internal/core"
	"melodex/pkg/fuzzy"
)

const (
	// thumbnailVariant is the canonical image variant (third largest).
	thumbnailVariant = 2
	// mediaVariant is the canonical media variant (fifth, highest quality).
	mediaVariant = 4
)

type Resolver struct {
	source     core.CatalogSource
	normalizer *fuzzy.Normalizer
	cache      *cache.ResolutionCache
	logger     *zap.Logger
}

func NewResolver(source core.CatalogSource, resolutionCache *cache.ResolutionCache, logger *zap.Logger) *Resolver {
	return &Resolver{
		source:     source,
		normalizer: fuzzy.NewNormalizer(),
		cache:      resolutionCache,
		logger:     logger,
	}
}

// Resolve maps one title hint to zero-or-one canonical track. Exactly one
// search is issued; the first candidate wins. Transport failures from the
// catalog are reported as core.ErrNoMatch here so a failing source can never
// abort a surrounding batch.
func (r *Resolver) Resolve(ctx context.Context, hint core.TitleHint) (*core.Track, error) {
	query := r.query(hint)
	if query == "" {
		return nil, fmt.Errorf("%w: empty title hint", core.ErrValidation)
	}

	if r.cache != nil {
		if track, ok := r.cache.Hit(query); ok {
			return &track, nil
		}
		if r.cache.KnownMiss(query) {
			return nil, fmt.Errorf("%w: %q", core.ErrNoMatch, query)
		}
	}

	candidates, err := r.source.Search(ctx, query)
	if err != nil {
		r.logger.Warn("Resolution search failed",
			zap.String("query", query),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %q: %v", core.ErrNoMatch, query, err)
	}

	if len(candidates) == 0 {
		if r.cache != nil {
			r.cache.MarkMiss(query)
		}
		return nil, fmt.Errorf("%w: %q", core.ErrNoMatch, query)
	}

	track := MapCandidate(candidates[0])
	if r.cache != nil {
		r.cache.PutHit(query, track)
	}
	return &track, nil
}

// ResolveAll maps a free-text query to the full mapped candidate list for
// the search surface. Unlike Resolve, transport failures propagate.
func (r *Resolver) ResolveAll(ctx context.Context, query string) ([]core.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", core.ErrValidation)
	}

	candidates, err := r.source.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	tracks := make([]core.Track, 0, len(candidates))
	for _, c := range candidates {
		tracks = append(tracks, MapCandidate(c))
	}
	return tracks, nil
}

// ResolveBatch resolves hints with bounded parallelism. The returned slice
// is indexed by hint position, preserving input order regardless of
// completion order; unresolved hints leave a nil entry.
func (r *Resolver) ResolveBatch(ctx context.Context, hints []core.TitleHint, parallelism int) []*core.Track {
	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]*core.Track, len(hints))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, hint := range hints {
		g.Go(func() error {
			track, err := r.Resolve(gctx, hint)
			if err != nil {
				r.logger.Debug("Hint dropped",
					zap.String("title", hint.Title),
					zap.Error(err))
				return nil
			}
			results[i] = track
			return nil
		})
	}

	// Workers only ever return nil.
	_ = g.Wait()

	return results
}

func (r *Resolver) query(hint core.TitleHint) string {
	title := r.normalizer.NormalizeTitle(hint.Title)
	artist := r.normalizer.NormalizeArtist(hint.Artist)
	return strings.TrimSpace(strings.TrimSpace(title + " " + artist))
}

// MapCandidate converts an ephemeral search candidate into the canonical
// track shape: third image variant, fifth media variant, insecure media
// transport rewritten to https. A candidate lacking a variant maps to an
// empty string, not a failure.
func MapCandidate(c core.Candidate) core.Track {
	return core.Track{
		ID:         c.ID,
		Name:       c.Name,
		Thumbnail:  pick(c.Images, thumbnailVariant),
		MediaURL:   SecureURL(pick(c.MediaURLs, mediaVariant)),
		ArtistName: c.ArtistName,
	}
}

func pick(urls []string, idx int) string {
	if idx < len(urls) {
		return urls[idx]
	}
	return ""
}

// SecureURL rewrites an insecure media URL to https. Applied to every
// playable-media URL before persistence.
func SecureURL(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
