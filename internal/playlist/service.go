package playlist

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"melodex/internal/catalog"
	"melodex/internal/core"
)

// TrackRef identifies the song being added: an existing local track id,
// inline track data from an external search result, or both (the id is
// tried first).
type TrackRef struct {
	ID     string
	Inline *core.Track
}

// BulkResult is the final tally of a bulk import. Per-item failures are
// omissions here, never errors.
type BulkResult struct {
	AddedCount int      `json:"addedCount"`
	AddedNames []string `json:"addedNames"`
}

// Update carries optional field changes; empty fields are left untouched.
type Update struct {
	Name        string
	Thumbnail   string
	Description string
}

type Service struct {
	playlists   core.PlaylistRepo
	tracks      core.TrackRepo
	users       core.UserRepo
	resolver    *catalog.Resolver
	extractor   core.ChartExtractor
	parallelism int
	logger      *zap.Logger
}

func NewService(
	playlists core.PlaylistRepo,
	tracks core.TrackRepo,
	users core.UserRepo,
	resolver *catalog.Resolver,
	extractor core.ChartExtractor,
	parallelism int,
	logger *zap.Logger,
) *Service {
	return &Service{
		playlists:   playlists,
		tracks:      tracks,
		users:       users,
		resolver:    resolver,
		extractor:   extractor,
		parallelism: parallelism,
		logger:      logger,
	}
}

func (s *Service) Create(ctx context.Context, identity, name, thumbnail, description string) (*core.Playlist, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: missing identity", core.ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: playlist name required", core.ErrValidation)
	}

	pl := &core.Playlist{
		ID:            uuid.NewString(),
		Name:          name,
		Thumbnail:     thumbnail,
		Description:   description,
		Owner:         identity,
		Collaborators: []string{},
		SongIDs:       []string{},
	}

	if err := s.playlists.Insert(ctx, pl); err != nil {
		return nil, err
	}

	s.logger.Info("Playlist created",
		zap.String("playlistID", pl.ID),
		zap.String("owner", identity))
	return pl, nil
}

func (s *Service) Get(ctx context.Context, playlistID string) (*core.Playlist, error) {
	return s.playlists.FindByID(ctx, playlistID)
}

// ListByOwner returns the owner's playlists after checking the owner
// actually exists.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]core.Playlist, error) {
	if _, err := s.users.FindByID(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.playlists.ListByOwner(ctx, ownerID)
}

func (s *Service) Update(ctx context.Context, playlistID, identity string, upd Update) (*core.Playlist, error) {
	pl, err := s.authorized(ctx, playlistID, identity)
	if err != nil {
		return nil, err
	}

	if upd.Name != "" {
		pl.Name = upd.Name
	}
	if upd.Thumbnail != "" {
		pl.Thumbnail = upd.Thumbnail
	}
	if upd.Description != "" {
		pl.Description = upd.Description
	}

	if err := s.playlists.Save(ctx, pl); err != nil {
		return nil, err
	}
	return pl, nil
}

// Delete removes the playlist. Collaborators may delete too, mirroring
// mutation rights. Embedded snapshot copies are unaffected.
func (s *Service) Delete(ctx context.Context, playlistID, identity string) error {
	if _, err := s.authorized(ctx, playlistID, identity); err != nil {
		return err
	}
	return s.playlists.Delete(ctx, playlistID)
}

// AddSingle appends one song. An existing local track is referenced by id;
// otherwise inline data is upserted keyed on its media URL so the same
// playable media never produces two track documents. Adding a song already
// present is a no-op, not an error.
func (s *Service) AddSingle(ctx context.Context, playlistID, identity string, ref TrackRef) (*core.Playlist, error) {
	pl, err := s.authorized(ctx, playlistID, identity)
	if err != nil {
		return nil, err
	}

	track, err := s.materialize(ctx, ref)
	if err != nil {
		return nil, err
	}

	if slices.Contains(pl.SongIDs, track.ID) {
		return pl, nil
	}

	pl.SongIDs = append(pl.SongIDs, track.ID)
	if err := s.playlists.Save(ctx, pl); err != nil {
		return nil, err
	}

	s.logger.Debug("Song added",
		zap.String("playlistID", pl.ID),
		zap.String("trackID", track.ID))
	return pl, nil
}

// RemoveSingle deletes one song reference. An absent id is reported as
// core.ErrNotInPlaylist so callers can tell it apart from a missing
// playlist.
func (s *Service) RemoveSingle(ctx context.Context, playlistID, trackID, identity string) (*core.Playlist, error) {
	pl, err := s.authorized(ctx, playlistID, identity)
	if err != nil {
		return nil, err
	}

	idx := slices.Index(pl.SongIDs, trackID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: track %s", core.ErrNotInPlaylist, trackID)
	}

	pl.SongIDs = slices.Delete(pl.SongIDs, idx, idx+1)
	if err := s.playlists.Save(ctx, pl); err != nil {
		return nil, err
	}
	return pl, nil
}

// AddBulk resolves externally sourced title hints and appends the matches.
// Authorization rejects the whole batch up front; after that every item is
// independent, and failures only shrink the tally. The playlist is
// persisted once at the end of the batch.
func (s *Service) AddBulk(ctx context.Context, playlistID, identity string, hints []core.TitleHint) (BulkResult, error) {
	pl, err := s.authorized(ctx, playlistID, identity)
	if err != nil {
		return BulkResult{}, err
	}
	return s.appendResolved(ctx, pl, hints)
}

// ImportExternal pulls an entire external playlist through the configured
// chart extractor and bulk-adds the resolvable tracks.
func (s *Service) ImportExternal(ctx context.Context, playlistID, identity, locator string) (BulkResult, error) {
	if strings.TrimSpace(locator) == "" {
		return BulkResult{}, fmt.Errorf("%w: empty playlist locator", core.ErrValidation)
	}

	pl, err := s.authorized(ctx, playlistID, identity)
	if err != nil {
		return BulkResult{}, err
	}

	hints, err := s.extractor.Extract(ctx, locator)
	if err != nil {
		return BulkResult{}, err
	}

	return s.appendResolved(ctx, pl, hints)
}

func (s *Service) appendResolved(ctx context.Context, pl *core.Playlist, hints []core.TitleHint) (BulkResult, error) {
	resolved := s.resolver.ResolveBatch(ctx, hints, s.parallelism)

	var result BulkResult
	for i, track := range resolved {
		if track == nil {
			continue // unresolved
		}

		stored, err := s.tracks.FindOrCreateByMediaURL(ctx, *track)
		if err != nil {
			s.logger.Warn("Track upsert failed, skipping",
				zap.String("title", hints[i].Title),
				zap.Error(err))
			continue
		}

		if slices.Contains(pl.SongIDs, stored.ID) {
			continue // duplicate-skip
		}

		pl.SongIDs = append(pl.SongIDs, stored.ID)
		result.AddedCount++
		result.AddedNames = append(result.AddedNames, stored.Name)
	}

	if result.AddedCount > 0 {
		if err := s.playlists.Save(ctx, pl); err != nil {
			return BulkResult{}, err
		}
	}

	s.logger.Info("Bulk add complete",
		zap.String("playlistID", pl.ID),
		zap.Int("hints", len(hints)),
		zap.Int("added", result.AddedCount))
	return result, nil
}

func (s *Service) authorized(ctx context.Context, playlistID, identity string) (*core.Playlist, error) {
	pl, err := s.playlists.FindByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if Authorize(pl, identity) == core.RoleNone {
		return nil, fmt.Errorf("%w: playlist %s", core.ErrNotAllowed, playlistID)
	}
	return pl, nil
}

func (s *Service) materialize(ctx context.Context, ref TrackRef) (*core.Track, error) {
	if ref.ID != "" {
		track, err := s.tracks.FindByID(ctx, ref.ID)
		if err == nil {
			return track, nil
		}
		if !errors.Is(err, core.ErrNotFound) || ref.Inline == nil {
			return nil, err
		}
	}

	if ref.Inline == nil {
		return nil, fmt.Errorf("%w: no track reference or inline data", core.ErrValidation)
	}

	inline := *ref.Inline
	inline.MediaURL = catalog.SecureURL(inline.MediaURL)
	return s.tracks.FindOrCreateByMediaURL(ctx, inline)
}
