package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"melodex/internal/core"
	"melodex/internal/playlist"
)

type identityHandler func(w http.ResponseWriter, r *http.Request, identity string)

// instrument wraps a handler with request counting and timing.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		if s.metrics != nil {
			s.metrics.RecordRequest(route, strconv.Itoa(rec.status), time.Since(start))
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requireAuth resolves the bearer token to a user id before calling next.
func (s *Server) requireAuth(next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}
		identity, err := s.deps.Auth.Verify(parts[1])
		if err != nil {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r, identity)
	}
}

func (s *Server) handleSearchSongs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	tracks, err := s.deps.Resolver.ResolveAll(r.Context(), query)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordResolution("error")
		}
		s.writeError(w, err)
		return
	}
	if s.metrics != nil {
		if len(tracks) > 0 {
			s.metrics.RecordResolution("matched")
		} else {
			s.metrics.RecordResolution("none")
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": tracks})
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.deps.Trending.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": tracks})
}

func (s *Server) handleTrendingSync(w http.ResponseWriter, r *http.Request, identity string) {
	summary, err := s.deps.Trending.Synchronize(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("Manual trending sync",
		zap.String("identity", identity),
		zap.Int("count", summary.Count))
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBrowse(list func(ctx context.Context) ([]core.CatalogItem, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": items})
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := s.deps.Auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := s.deps.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type playlistRequest struct {
	Name        string `json:"name"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
}

func (s *Server) handlePlaylistCreate(w http.ResponseWriter, r *http.Request, identity string) {
	var req playlistRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pl, err := s.deps.Playlists.Create(r.Context(), identity, req.Name, req.Thumbnail, req.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pl)
}

func (s *Server) handlePlaylistList(w http.ResponseWriter, r *http.Request, identity string) {
	pls, err := s.deps.Playlists.ListByOwner(r.Context(), identity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": pls})
}

func (s *Server) handlePlaylistGet(w http.ResponseWriter, r *http.Request) {
	pl, err := s.deps.Playlists.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handlePlaylistUpdate(w http.ResponseWriter, r *http.Request, identity string) {
	var req playlistRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pl, err := s.deps.Playlists.Update(r.Context(), r.PathValue("id"), identity, playlist.Update{
		Name:        req.Name,
		Thumbnail:   req.Thumbnail,
		Description: req.Description,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handlePlaylistDelete(w http.ResponseWriter, r *http.Request, identity string) {
	if err := s.deps.Playlists.Delete(r.Context(), r.PathValue("id"), identity); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type addSongRequest struct {
	ID    string      `json:"id"`
	Track *core.Track `json:"track"`
}

func (s *Server) handleSongAdd(w http.ResponseWriter, r *http.Request, identity string) {
	var req addSongRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pl, err := s.deps.Playlists.AddSingle(r.Context(), r.PathValue("id"), identity, playlist.TrackRef{
		ID:     req.ID,
		Inline: req.Track,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

type addBulkRequest struct {
	Songs []core.TitleHint `json:"songs"`
}

func (s *Server) handleSongAddBulk(w http.ResponseWriter, r *http.Request, identity string) {
	var req addBulkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Songs) == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "songs list is empty")
		return
	}
	result, err := s.deps.Playlists.AddBulk(r.Context(), r.PathValue("id"), identity, req.Songs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSongRemove(w http.ResponseWriter, r *http.Request, identity string) {
	pl, err := s.deps.Playlists.RemoveSingle(r.Context(), r.PathValue("id"), r.PathValue("songID"), identity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

type importRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, identity string) {
	if s.deps.Gate != nil && !s.deps.Gate.Allow(identity) {
		if s.metrics != nil {
			s.metrics.RecordThrottledImport()
		}
		writeErrorMessage(w, http.StatusTooManyRequests, "too many imports, slow down")
		return
	}

	var req importRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.deps.Playlists.ImportExternal(r.Context(), r.PathValue("id"), identity, req.URL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the service error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotAllowed):
		writeErrorMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrNotInPlaylist), errors.Is(err, core.ErrNoMatch):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrUnavailable):
		writeErrorMessage(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("Unhandled request error", zap.Error(err))
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}
