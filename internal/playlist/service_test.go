package playlist

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"go.uber.org/zap"

	"melodex/internal/catalog"
	"melodex/internal/core"
)

type memPlaylists struct {
	mutex sync.Mutex
	byID  map[string]core.Playlist
	saves int
}

func newMemPlaylists(pls ...core.Playlist) *memPlaylists {
	m := &memPlaylists{byID: map[string]core.Playlist{}}
	for _, pl := range pls {
		m.byID[pl.ID] = pl
	}
	return m
}

func (m *memPlaylists) FindByID(_ context.Context, id string) (*core.Playlist, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	pl, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s", core.ErrNotFound, id)
	}
	copied := pl
	copied.SongIDs = slices.Clone(pl.SongIDs)
	return &copied, nil
}

func (m *memPlaylists) ListByOwner(_ context.Context, ownerID string) ([]core.Playlist, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var out []core.Playlist
	for _, pl := range m.byID {
		if pl.Owner == ownerID {
			out = append(out, pl)
		}
	}
	return out, nil
}

func (m *memPlaylists) Insert(_ context.Context, pl *core.Playlist) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.byID[pl.ID] = *pl
	return nil
}

func (m *memPlaylists) Save(_ context.Context, pl *core.Playlist) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.byID[pl.ID] = *pl
	m.saves++
	return nil
}

func (m *memPlaylists) Delete(_ context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.byID[id]; !ok {
		return fmt.Errorf("%w: playlist %s", core.ErrNotFound, id)
	}
	delete(m.byID, id)
	return nil
}

func (m *memPlaylists) songIDs(id string) []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return slices.Clone(m.byID[id].SongIDs)
}

type memTracks struct {
	mutex      sync.Mutex
	byID       map[string]core.Track
	byMediaURL map[string]string
	seq        int
}

func newMemTracks(tracks ...core.Track) *memTracks {
	m := &memTracks{byID: map[string]core.Track{}, byMediaURL: map[string]string{}}
	for _, t := range tracks {
		m.byID[t.ID] = t
		if t.MediaURL != "" {
			m.byMediaURL[t.MediaURL] = t.ID
		}
	}
	return m
}

func (m *memTracks) FindByID(_ context.Context, id string) (*core.Track, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: track %s", core.ErrNotFound, id)
	}
	return &t, nil
}

func (m *memTracks) FindOrCreateByMediaURL(_ context.Context, t core.Track) (*core.Track, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if id, ok := m.byMediaURL[t.MediaURL]; ok && t.MediaURL != "" {
		existing := m.byID[id]
		return &existing, nil
	}
	if t.ID == "" {
		m.seq++
		t.ID = fmt.Sprintf("local-%d", m.seq)
	}
	m.byID[t.ID] = t
	if t.MediaURL != "" {
		m.byMediaURL[t.MediaURL] = t.ID
	}
	return &t, nil
}

func (m *memTracks) count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.byID)
}

type memUsers struct{ ids map[string]bool }

func (m *memUsers) FindByID(_ context.Context, id string) (*core.User, error) {
	if !m.ids[id] {
		return nil, fmt.Errorf("%w: user", core.ErrNotFound)
	}
	return &core.User{ID: id}, nil
}

func (m *memUsers) FindByUsername(context.Context, string) (*core.User, error) {
	return nil, fmt.Errorf("%w: user", core.ErrNotFound)
}

func (m *memUsers) Create(context.Context, *core.User) error { return nil }

type fakeSource struct {
	responses map[string][]core.Candidate
}

func (f *fakeSource) Search(_ context.Context, query string) ([]core.Candidate, error) {
	if f.responses == nil {
		return nil, nil
	}
	return f.responses[query], nil
}

type fakeExtractor struct {
	hints []core.TitleHint
	err   error
}

func (f *fakeExtractor) Extract(context.Context, string) ([]core.TitleHint, error) {
	return f.hints, f.err
}

func candidate(id, mediaURL string) core.Candidate {
	return core.Candidate{
		ID:        id,
		Name:      "Song " + id,
		MediaURLs: []string{"q0", "q1", "q2", "q3", mediaURL},
	}
}

func basePlaylist() core.Playlist {
	return core.Playlist{
		ID:            "p1",
		Name:          "Road Trip",
		Owner:         "owner",
		Collaborators: []string{"collab"},
		SongIDs:       []string{},
	}
}

func newService(pls *memPlaylists, tracks *memTracks, src core.CatalogSource, ex core.ChartExtractor) *Service {
	resolver := catalog.NewResolver(src, nil, zap.NewNop())
	return NewService(pls, tracks, &memUsers{ids: map[string]bool{"owner": true}}, resolver, ex, 4, zap.NewNop())
}

func TestAddSingleIsIdempotent(t *testing.T) {
	pls := newMemPlaylists(basePlaylist())
	tracks := newMemTracks(core.Track{ID: "t1", Name: "Tum Hi Ho", MediaURL: "https://cdn.example/t1.mp4"})
	svc := newService(pls, tracks, &fakeSource{}, &fakeExtractor{})

	for range 2 {
		if _, err := svc.AddSingle(context.Background(), "p1", "owner", TrackRef{ID: "t1"}); err != nil {
			t.Fatalf("AddSingle failed: %v", err)
		}
	}

	if got := pls.songIDs("p1"); len(got) != 1 || got[0] != "t1" {
		t.Errorf("expected exactly one t1 entry, got %v", got)
	}
	if pls.saves != 1 {
		t.Errorf("second add must be a no-op, got %d saves", pls.saves)
	}
}

func TestAddSingleUnauthorized(t *testing.T) {
	pls := newMemPlaylists(basePlaylist())
	tracks := newMemTracks(core.Track{ID: "t1"})
	svc := newService(pls, tracks, &fakeSource{}, &fakeExtractor{})

	_, err := svc.AddSingle(context.Background(), "p1", "stranger", TrackRef{ID: "t1"})
	if !errors.Is(err, core.ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}
	if len(pls.songIDs("p1")) != 0 {
		t.Error("unauthorized add must not mutate the playlist")
	}
}

func TestAddSingleCollaboratorAllowed(t *testing.T) {
	pls := newMemPlaylists(basePlaylist())
	tracks := newMemTracks(core.Track{ID: "t1"})
	svc := newService(pls, tracks, &fakeSource{}, &fakeExtractor{})

	if _, err := svc.AddSingle(context.Background(), "p1", "collab", TrackRef{ID: "t1"}); err != nil {
		t.Fatalf("collaborator add failed: %v", err)
	}
}

func TestAddSingleInlineUpsertsByMediaURL(t *testing.T) {
	pls := newMemPlaylists(basePlaylist())
	tracks := newMemTracks()
	svc := newService(pls, tracks, &fakeSource{}, &fakeExtractor{})

	inline := &core.Track{Name: "Kesariya", MediaURL: "http://cdn.example/a.mp4"}

	pl, err := svc.AddSingle(context.Background(), "p1", "owner", TrackRef{Inline: inline})
	if err != nil {
		t.Fatalf("inline add failed: %v", err)
	}
	if len(pl.SongIDs) != 1 {
		t.Fatalf("expected 1 song, got %d", len(pl.SongIDs))
	}

	stored, err := tracks.FindByID(context.Background(), pl.SongIDs[0])
	if err != nil {
		t.Fatalf("stored track missing: %v", err)
	}
	if stored.MediaURL != "https://cdn.example/a.mp4" {
		t.Errorf("media URL not rewritten to https: %q", stored.MediaURL)
	}

	// Same media URL again: must reuse the track, not create a second one.
	if _, err := svc.AddSingle(context.Background(), "p1", "owner", TrackRef{Inline: inline}); err != nil {
		t.Fatalf("second inline add failed: %v", err)
	}
	if tracks.count() != 1 {
		t.Errorf("expected a single track document, got %d", tracks.count())
	}
}

func TestAddSingleMissingRefAndInline(t *testing.T) {
	pls := newMemPlaylists(basePlaylist())
	svc := newService(pls, newMemTracks(), &fakeSource{}, &fakeExtractor{})

	_, err := svc.AddSingle(context.Background(), "p1", "owner", TrackRef{})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	_, err = svc.AddSingle(context.Background(), "p1", "owner", TrackRef{ID: "ghost"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddBulkUnauthorizedMakesNoChanges(t *testing.T) {
	pls := newMemPlaylists(basePlaylist())
	tracks := newMemTracks()
	src := &fakeSource{responses: map[string][]core.Candidate{
		"hit one": {candidate("h1", "https://cdn.example/h1.mp4")},
		"hit two": {candidate("h2", "https://cdn.example/h2.mp4")},
	}}
	svc := newService(pls, tracks, src, &fakeExtractor{})

	hints := []core.TitleHint{{Title: "hit one"}, {Title: "hit two"}}
	_, err := svc.AddBulk(context.Background(), "p1", "stranger", hints)
	if !errors.Is(err, core.ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}
	if len(pls.songIDs("p1")) != 0 || pls.saves != 0 || tracks.count() != 0 {
		t.Error("unauthorized bulk import must persist nothing")
	}
}

func TestAddBulkPartialResolution(t *testing.T) {
	pl := basePlaylist()
	pl.SongIDs = []string{"h1"} // first hit already present
	pls := newMemPlaylists(pl)
	tracks := newMemTracks(core.Track{ID: "h1", Name: "Song h1", MediaURL: "https://cdn.example/h1.mp4"})
	src := &fakeSource{responses: map[string][]core.Candidate{
		"hit one":   {candidate("h1", "https://cdn.example/h1.mp4")},
		"hit two":   {candidate("h2", "https://cdn.example/h2.mp4")},
		"hit three": {candidate("h3", "https://cdn.example/h3.mp4")},
	}}
	svc := newService(pls, tracks, src, &fakeExtractor{})

	hints := []core.TitleHint{
		{Title: "hit one"},   // resolves, duplicate-skip
		{Title: "no match"},  // unresolved
		{Title: "hit two"},   // resolves, added
		{Title: "no match 2"},
		{Title: "hit three"}, // resolves, added
	}

	result, err := svc.AddBulk(context.Background(), "p1", "owner", hints)
	if err != nil {
		t.Fatalf("AddBulk failed: %v", err)
	}

	if result.AddedCount != 2 {
		t.Errorf("expected addedCount 2, got %d", result.AddedCount)
	}
	wantNames := []string{"Song h2", "Song h3"}
	if !slices.Equal(result.AddedNames, wantNames) {
		t.Errorf("expected names %v, got %v", wantNames, result.AddedNames)
	}
	if got := pls.songIDs("p1"); !slices.Equal(got, []string{"h1", "h2", "h3"}) {
		t.Errorf("unexpected playlist order %v", got)
	}
	if pls.saves != 1 {
		t.Errorf("batch must persist exactly once, got %d saves", pls.saves)
	}
}

func TestImportExternal(t *testing.T) {
	pls := newMemPlaylists(basePlaylist())
	tracks := newMemTracks()
	src := &fakeSource{responses: map[string][]core.Candidate{
		"kesariya arijit singh": {candidate("k1", "https://cdn.example/k1.mp4")},
	}}
	ex := &fakeExtractor{hints: []core.TitleHint{{Title: "Kesariya", Artist: "Arijit Singh"}}}
	svc := newService(pls, tracks, src, ex)

	result, err := svc.ImportExternal(context.Background(), "p1", "owner", "https://open.spotify.com/playlist/x1")
	if err != nil {
		t.Fatalf("ImportExternal failed: %v", err)
	}
	if result.AddedCount != 1 {
		t.Errorf("expected 1 added, got %d", result.AddedCount)
	}
}

func TestImportExternalValidatesLocator(t *testing.T) {
	svc := newService(newMemPlaylists(basePlaylist()), newMemTracks(), &fakeSource{}, &fakeExtractor{})

	_, err := svc.ImportExternal(context.Background(), "p1", "owner", "  ")
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestImportExternalExtractionFailure(t *testing.T) {
	ex := &fakeExtractor{err: core.ErrUnavailable}
	svc := newService(newMemPlaylists(basePlaylist()), newMemTracks(), &fakeSource{}, ex)

	_, err := svc.ImportExternal(context.Background(), "p1", "owner", "spotify:playlist:x1")
	if !errors.Is(err, core.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestRemoveSingle(t *testing.T) {
	pl := basePlaylist()
	pl.SongIDs = []string{"t1", "t2", "t3"}
	pls := newMemPlaylists(pl)
	svc := newService(pls, newMemTracks(), &fakeSource{}, &fakeExtractor{})

	updated, err := svc.RemoveSingle(context.Background(), "p1", "t2", "owner")
	if err != nil {
		t.Fatalf("RemoveSingle failed: %v", err)
	}
	if !slices.Equal(updated.SongIDs, []string{"t1", "t3"}) {
		t.Errorf("unexpected songs %v", updated.SongIDs)
	}

	_, err = svc.RemoveSingle(context.Background(), "p1", "t2", "owner")
	if !errors.Is(err, core.ErrNotInPlaylist) {
		t.Errorf("expected ErrNotInPlaylist, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newService(newMemPlaylists(), newMemTracks(), &fakeSource{}, &fakeExtractor{})

	if _, err := svc.Create(context.Background(), "owner", "  ", "", ""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("blank name: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "", "Mix", "", ""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("missing identity: expected ErrValidation, got %v", err)
	}

	pl, err := svc.Create(context.Background(), "owner", "Mix", "thumb.jpg", "desc")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if pl.Owner != "owner" || pl.ID == "" {
		t.Errorf("unexpected playlist %+v", pl)
	}
	if len(pl.Collaborators) != 0 {
		t.Error("owner must not be listed as collaborator")
	}
}

func TestUpdateAndDeleteGated(t *testing.T) {
	pls := newMemPlaylists(basePlaylist())
	svc := newService(pls, newMemTracks(), &fakeSource{}, &fakeExtractor{})

	if _, err := svc.Update(context.Background(), "p1", "stranger", Update{Name: "hacked"}); !errors.Is(err, core.ErrNotAllowed) {
		t.Errorf("expected ErrNotAllowed, got %v", err)
	}

	updated, err := svc.Update(context.Background(), "p1", "collab", Update{Name: "Renamed", Thumbnail: "new.jpg"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "Renamed" || updated.Thumbnail != "new.jpg" {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.Description != "" {
		t.Errorf("untouched field changed: %+v", updated)
	}

	if err := svc.Delete(context.Background(), "p1", "stranger"); !errors.Is(err, core.ErrNotAllowed) {
		t.Errorf("expected ErrNotAllowed, got %v", err)
	}
	if err := svc.Delete(context.Background(), "p1", "collab"); err != nil {
		t.Errorf("collaborator delete failed: %v", err)
	}
}

func TestListByOwnerChecksOwnerExists(t *testing.T) {
	svc := newService(newMemPlaylists(basePlaylist()), newMemTracks(), &fakeSource{}, &fakeExtractor{})

	if _, err := svc.ListByOwner(context.Background(), "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown owner, got %v", err)
	}

	pls, err := svc.ListByOwner(context.Background(), "owner")
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(pls) != 1 {
		t.Errorf("expected 1 playlist, got %d", len(pls))
	}
}
