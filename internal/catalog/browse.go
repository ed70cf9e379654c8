package catalog

import (
	"context"

	"go.uber.org/zap"

	"melodex/internal/core"
)

var (
	popularAlbumKeywords = []string{"popular albums", "trending albums", "latest albums"}

	popularArtistNames = []string{
		"Arijit Singh",
		"Shreya Ghoshal",
		"Badshah",
		"Neha Kakkar",
		"KK",
		"Sonu Nigam",
		"Jubin Nautiyal",
		"Diljit Dosanjh",
		"Atif Aslam",
	}

	indiasBestKeywords = []string{"india top", "india best", "top 100 india", "indian music"}
)

// BrowseSource is the slice of the catalog client the curated lists need.
type BrowseSource interface {
	SearchAlbums(ctx context.Context, query string) ([]core.CatalogItem, error)
	SearchArtists(ctx context.Context, query string) ([]core.CatalogItem, error)
	SearchPlaylists(ctx context.Context, query string) ([]core.CatalogItem, error)
}

// Browser serves the fixed curated lists. Every list is a keyword union
// deduplicated by id, first seen wins, in keyword order.
type Browser struct {
	source BrowseSource
	logger *zap.Logger
}

func NewBrowser(source BrowseSource, logger *zap.Logger) *Browser {
	return &Browser{source: source, logger: logger}
}

func (b *Browser) PopularAlbums(ctx context.Context) ([]core.CatalogItem, error) {
	return b.union(ctx, popularAlbumKeywords, b.source.SearchAlbums)
}

// PopularArtists resolves a fixed name list, keeping the first result per
// name. Names with no result are skipped, not errors.
func (b *Browser) PopularArtists(ctx context.Context) ([]core.CatalogItem, error) {
	items := make([]core.CatalogItem, 0, len(popularArtistNames))
	for _, name := range popularArtistNames {
		results, err := b.source.SearchArtists(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			b.logger.Debug("No artist result", zap.String("name", name))
			continue
		}
		items = append(items, results[0])
	}
	return DedupeItems(items), nil
}

func (b *Browser) PopularRadio(ctx context.Context) ([]core.CatalogItem, error) {
	items, err := b.source.SearchPlaylists(ctx, "radio")
	if err != nil {
		return nil, err
	}
	return DedupeItems(items), nil
}

func (b *Browser) IndiasBest(ctx context.Context) ([]core.CatalogItem, error) {
	return b.union(ctx, indiasBestKeywords, b.source.SearchPlaylists)
}

func (b *Browser) union(
	ctx context.Context,
	keywords []string,
	search func(context.Context, string) ([]core.CatalogItem, error),
) ([]core.CatalogItem, error) {
	var items []core.CatalogItem
	for _, keyword := range keywords {
		results, err := search(ctx, keyword)
		if err != nil {
			return nil, err
		}
		items = append(items, results...)
	}
	return DedupeItems(items), nil
}
