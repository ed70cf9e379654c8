package charts

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"melodex/internal/core"
)

var (
	spotifyPlaylistRegex = regexp.MustCompile(`(?:https?://)?(?:open\.)?spotify\.com/playlist/([a-zA-Z0-9]+)`)
	spotifyURIRegex      = regexp.MustCompile(`spotify:playlist:([a-zA-Z0-9]+)`)
	bareIDRegex          = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

// playlistPager is the page-walking slice of the Spotify client, split out
// so the cursor loop is testable without the network.
type playlistPager interface {
	FirstPage(ctx context.Context, playlistID string) (*spotify.PlaylistItemPage, error)
	NextPage(ctx context.Context, page *spotify.PlaylistItemPage) error
}

type apiPager struct {
	clientID string
	secret   string

	mutex  sync.Mutex
	client *spotify.Client
}

func (p *apiPager) ensureClient(ctx context.Context) (*spotify.Client, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	config := &clientcredentials.Config{
		ClientID:     p.clientID,
		ClientSecret: p.secret,
		TokenURL:     spotifyauth.TokenURL,
	}

	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	p.client = spotify.New(spotifyauth.New().Client(ctx, token))
	return p.client, nil
}

func (p *apiPager) FirstPage(ctx context.Context, playlistID string) (*spotify.PlaylistItemPage, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.GetPlaylistItems(ctx, spotify.ID(playlistID))
}

func (p *apiPager) NextPage(ctx context.Context, page *spotify.PlaylistItemPage) error {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return err
	}
	return client.NextPage(ctx, page)
}

// SpotifyExtractor extracts hints from an external playlist through the
// token-authenticated paginated tracks API. Extraction follows the opaque
// next cursor until absent; any page failure aborts the whole extraction.
type SpotifyExtractor struct {
	pager   playlistPager
	timeout time.Duration
	logger  *zap.Logger
}

func NewSpotifyExtractor(cfg *core.ChartsConfig, logger *zap.Logger) *SpotifyExtractor {
	return &SpotifyExtractor{
		pager:   &apiPager{clientID: cfg.SpotifyClientID, secret: cfg.SpotifySecret},
		timeout: cfg.ExtractTimeout,
		logger:  logger,
	}
}

func (e *SpotifyExtractor) Extract(ctx context.Context, locator string) ([]core.TitleHint, error) {
	playlistID, err := parsePlaylistID(locator)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	page, err := e.pager.FirstPage(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: playlist page: %v", core.ErrUnavailable, err)
	}

	var hints []core.TitleHint
	for {
		for _, item := range page.Items {
			track := item.Track.Track
			if track == nil || track.Name == "" {
				continue // episodes and local files carry no track
			}
			hint := core.TitleHint{Title: track.Name}
			if len(track.Artists) > 0 {
				hint.Artist = track.Artists[0].Name
			}
			hints = append(hints, hint)
		}

		err := e.pager.NextPage(ctx, page)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: next page: %v", core.ErrUnavailable, err)
		}
	}

	e.logger.Debug("External playlist extracted",
		zap.String("playlistID", playlistID),
		zap.Int("tracks", len(hints)))
	return hints, nil
}

func parsePlaylistID(locator string) (string, error) {
	if locator == "" {
		return "", fmt.Errorf("%w: empty playlist locator", core.ErrValidation)
	}

	if m := spotifyPlaylistRegex.FindStringSubmatch(locator); m != nil {
		return m[1], nil
	}
	if m := spotifyURIRegex.FindStringSubmatch(locator); m != nil {
		return m[1], nil
	}
	if bareIDRegex.MatchString(locator) {
		return locator, nil
	}

	return "", fmt.Errorf("%w: malformed playlist locator %q", core.ErrValidation, locator)
}
