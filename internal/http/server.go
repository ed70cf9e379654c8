// Package http exposes the catalog, trending and playlist operations as a
// JSON API next to the usual health and metrics endpoints.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"melodex/internal/core"
	"melodex/internal/playlist"
)

// SongResolver answers free-text catalog searches.
type SongResolver interface {
	ResolveAll(ctx context.Context, query string) ([]core.Track, error)
}

// TrendingService serves the current snapshot and runs manual syncs.
type TrendingService interface {
	Snapshot(ctx context.Context) ([]core.Track, error)
	Synchronize(ctx context.Context) (core.SyncSummary, error)
}

// CatalogBrowser serves the curated browse lists.
type CatalogBrowser interface {
	PopularAlbums(ctx context.Context) ([]core.CatalogItem, error)
	PopularArtists(ctx context.Context) ([]core.CatalogItem, error)
	PopularRadio(ctx context.Context) ([]core.CatalogItem, error)
	IndiasBest(ctx context.Context) ([]core.CatalogItem, error)
}

// PlaylistService is the slice of the playlist package the handlers use.
type PlaylistService interface {
	Create(ctx context.Context, identity, name, thumbnail, description string) (*core.Playlist, error)
	Get(ctx context.Context, playlistID string) (*core.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]core.Playlist, error)
	Update(ctx context.Context, playlistID, identity string, upd playlist.Update) (*core.Playlist, error)
	Delete(ctx context.Context, playlistID, identity string) error
	AddSingle(ctx context.Context, playlistID, identity string, ref playlist.TrackRef) (*core.Playlist, error)
	RemoveSingle(ctx context.Context, playlistID, trackID, identity string) (*core.Playlist, error)
	AddBulk(ctx context.Context, playlistID, identity string, hints []core.TitleHint) (playlist.BulkResult, error)
	ImportExternal(ctx context.Context, playlistID, identity, locator string) (playlist.BulkResult, error)
}

// AuthService registers accounts, checks credentials and verifies tokens.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*core.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Verify(tokenString string) (string, error)
}

// ImportGate throttles bulk imports per identity.
type ImportGate interface {
	Allow(identity string) bool
}

// Deps bundles everything the server needs. Ready is consulted by the
// readiness probe and may be nil.
type Deps struct {
	Resolver  SongResolver
	Trending  TrendingService
	Browser   CatalogBrowser
	Playlists PlaylistService
	Auth      AuthService
	Gate      ImportGate
	Ready     func(ctx context.Context) error
}

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
	deps    Deps
}

func NewServer(config *core.ServerConfig, deps Deps, metrics *Metrics, logger *zap.Logger) *Server {
	s := &Server{
		config:  config,
		logger:  logger,
		metrics: metrics,
		deps:    deps,
	}
	s.server = createHTTPServer(config, s.routes())
	return s
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "melodex"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Ready != nil {
			if err := s.deps.Ready(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "melodex"})
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /api/search/songs", s.instrument("search_songs", s.handleSearchSongs))

	mux.HandleFunc("GET /api/songs/trending", s.instrument("trending_get", s.handleTrending))
	mux.HandleFunc("POST /api/songs/trending/sync", s.instrument("trending_sync", s.requireAuth(s.handleTrendingSync)))

	mux.HandleFunc("GET /api/browse/popular-albums", s.instrument("browse_albums", s.handleBrowse(s.deps.Browser.PopularAlbums)))
	mux.HandleFunc("GET /api/browse/popular-artists", s.instrument("browse_artists", s.handleBrowse(s.deps.Browser.PopularArtists)))
	mux.HandleFunc("GET /api/browse/popular-radio", s.instrument("browse_radio", s.handleBrowse(s.deps.Browser.PopularRadio)))
	mux.HandleFunc("GET /api/browse/indias-best", s.instrument("browse_indias_best", s.handleBrowse(s.deps.Browser.IndiasBest)))

	mux.HandleFunc("POST /api/auth/register", s.instrument("auth_register", s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.instrument("auth_login", s.handleLogin))

	mux.HandleFunc("POST /api/playlists", s.instrument("playlist_create", s.requireAuth(s.handlePlaylistCreate)))
	mux.HandleFunc("GET /api/playlists", s.instrument("playlist_list", s.requireAuth(s.handlePlaylistList)))
	mux.HandleFunc("GET /api/playlists/{id}", s.instrument("playlist_get", s.handlePlaylistGet))
	mux.HandleFunc("PATCH /api/playlists/{id}", s.instrument("playlist_update", s.requireAuth(s.handlePlaylistUpdate)))
	mux.HandleFunc("DELETE /api/playlists/{id}", s.instrument("playlist_delete", s.requireAuth(s.handlePlaylistDelete)))
	mux.HandleFunc("POST /api/playlists/{id}/songs", s.instrument("playlist_add_song", s.requireAuth(s.handleSongAdd)))
	mux.HandleFunc("POST /api/playlists/{id}/songs/bulk", s.instrument("playlist_add_bulk", s.requireAuth(s.handleSongAddBulk)))
	mux.HandleFunc("DELETE /api/playlists/{id}/songs/{songID}", s.instrument("playlist_remove_song", s.requireAuth(s.handleSongRemove)))
	mux.HandleFunc("POST /api/playlists/{id}/import", s.instrument("playlist_import", s.requireAuth(s.handleImport)))

	return mux
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
