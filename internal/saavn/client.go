// Package saavn is the client for the JioSaavn-style search API, the
// catalog of record used to resolve arbitrary titles into canonical tracks.
package saavn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"melodex/internal/core"
)

const (
	// KindSongs selects the /search/songs endpoint.
	KindSongs = "songs"
	// KindAlbums selects the /search/albums endpoint.
	KindAlbums = "albums"
	// KindArtists selects the /search/artists endpoint.
	KindArtists = "artists"
	// KindPlaylists selects the /search/playlists endpoint.
	KindPlaylists = "playlists"

	// thumbnailVariant is the image variant used by convention (third largest).
	thumbnailVariant = 2
)

type variant struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

type artistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type result struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Type    string `json:"type"`
	Image   []variant `json:"image"`
	Artists struct {
		Primary []artistRef `json:"primary"`
	} `json:"artists"`
	DownloadURL []variant `json:"downloadUrl"`
}

type searchResponse struct {
	Data struct {
		Results []result `json:"results"`
	} `json:"data"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(cfg *core.CatalogConfig, logger *zap.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "saavn",
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Catalog breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		breaker:    breaker,
		logger:     logger,
	}
}

// Search implements core.CatalogSource over the songs endpoint. An empty
// result list is returned as (nil, nil); only transport and availability
// failures produce an error.
func (c *Client) Search(ctx context.Context, query string) ([]core.Candidate, error) {
	results, err := c.search(ctx, KindSongs, query)
	if err != nil {
		return nil, err
	}

	candidates := make([]core.Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, core.Candidate{
			ID:         r.ID,
			Name:       r.Name,
			ArtistName: primaryArtist(r),
			Images:     variantURLs(r.Image),
			MediaURLs:  variantURLs(r.DownloadURL),
		})
	}
	return candidates, nil
}

// SearchAlbums returns album items for the curated browse lists.
func (c *Client) SearchAlbums(ctx context.Context, query string) ([]core.CatalogItem, error) {
	return c.searchItems(ctx, KindAlbums, query)
}

// SearchArtists returns artist items for the curated browse lists.
func (c *Client) SearchArtists(ctx context.Context, query string) ([]core.CatalogItem, error) {
	return c.searchItems(ctx, KindArtists, query)
}

// SearchPlaylists returns playlist items for the curated browse lists.
func (c *Client) SearchPlaylists(ctx context.Context, query string) ([]core.CatalogItem, error) {
	return c.searchItems(ctx, KindPlaylists, query)
}

func (c *Client) searchItems(ctx context.Context, kind, query string) ([]core.CatalogItem, error) {
	results, err := c.search(ctx, kind, query)
	if err != nil {
		return nil, err
	}

	items := make([]core.CatalogItem, 0, len(results))
	for _, r := range results {
		items = append(items, core.CatalogItem{
			ID:    r.ID,
			Name:  r.Name,
			Image: variantURL(r.Image, thumbnailVariant),
			Role:  r.Role,
			Type:  r.Type,
		})
	}
	return items, nil
}

func (c *Client) search(ctx context.Context, kind, query string) ([]result, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", core.ErrValidation)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}

	endpoint := fmt.Sprintf("%s/search/%s?query=%s", c.baseURL, kind, url.QueryEscape(query))

	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		c.logger.Debug("Catalog search failed",
			zap.String("kind", kind),
			zap.String("query", query),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}

	var decoded searchResponse
	if err := json.Unmarshal(body.([]byte), &decoded); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", core.ErrUnavailable, err)
	}

	return decoded.Data.Results, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func primaryArtist(r result) string {
	if len(r.Artists.Primary) == 0 {
		return ""
	}
	return r.Artists.Primary[0].Name
}

func variantURLs(vs []variant) []string {
	urls := make([]string, 0, len(vs))
	for _, v := range vs {
		urls = append(urls, v.URL)
	}
	return urls
}

func variantURL(vs []variant, idx int) string {
	if idx < len(vs) {
		return vs[idx].URL
	}
	return ""
}
