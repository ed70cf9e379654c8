package core

import (
	"context"
	"strings"
	"time"
)

// Track is the canonical song shape persisted locally. Identity is the
// external catalog id when the track was resolved from the catalog of
// record, otherwise a locally generated id. MediaURL is immutable once
// persisted; name and thumbnail may be corrected by re-resolution.
type Track struct {
	ID         string `bson:"_id" json:"_id"`
	Name       string `bson:"name" json:"name"`
	Thumbnail  string `bson:"thumbnail" json:"thumbnail"`
	MediaURL   string `bson:"track" json:"track"`
	ArtistID   string `bson:"artist,omitempty" json:"artist,omitempty"`
	ArtistName string `bson:"artistName" json:"artistName"`
}

// TitleHint is a raw title string extracted from an external chart or
// playlist, optionally paired with an artist name.
type TitleHint struct {
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
}

// Query returns the free-text search query for the hint.
func (h TitleHint) Query() string {
	if h.Artist == "" {
		return strings.TrimSpace(h.Title)
	}
	return strings.TrimSpace(h.Title + " " + h.Artist)
}

// Candidate is the ephemeral shape returned by a CatalogSource. It keeps the
// raw variant arrays; picking the canonical thumbnail and media variant is
// the resolver's job. Candidates are never persisted as-is.
type Candidate struct {
	ID         string
	Name       string
	ArtistName string
	Images     []string
	MediaURLs  []string
}

// CatalogItem is a non-song search result (album, artist, playlist) used by
// the curated browse lists.
type CatalogItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Role  string `json:"role,omitempty"`
	Type  string `json:"type,omitempty"`
}

// TrendingSnapshot is the single trending document: embedded track copies
// plus the time of the last successful synchronization.
type TrendingSnapshot struct {
	Songs     []Track   `bson:"songs" json:"songs"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SyncSummary reports the outcome of one synchronization run.
type SyncSummary struct {
	Count     int       `json:"updatedCount"`
	UpdatedAt time.Time `json:"timestamp"`
}

// Playlist is a user-owned, collaboratively mutable ordered track list.
// SongIDs references tracks by id; the owner is never listed in
// Collaborators.
type Playlist struct {
	ID            string   `bson:"_id" json:"_id"`
	Name          string   `bson:"name" json:"name"`
	Thumbnail     string   `bson:"thumbnail" json:"thumbnail"`
	Description   string   `bson:"description" json:"description"`
	Owner         string   `bson:"owner" json:"owner"`
	Collaborators []string `bson:"collaborators" json:"collaborators"`
	SongIDs       []string `bson:"songs" json:"songs"`
}

// User is the minimal identity record backing authorization decisions.
type User struct {
	ID           string `bson:"_id" json:"_id"`
	Username     string `bson:"username" json:"username"`
	PasswordHash string `bson:"password" json:"-"`
}

// Role is the authorization level of an identity on a playlist.
type Role int

const (
	// RoleNone means the identity may not mutate the playlist.
	RoleNone Role = iota
	// RoleOwner is the single owning identity.
	RoleOwner
	// RoleCollaborator is a listed collaborator with mutation rights.
	RoleCollaborator
)

// CatalogSource searches one external catalog. A clean "no results" returns
// an empty slice and nil error; errors are reserved for transport and
// availability failures.
type CatalogSource interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// ChartExtractor produces ordered raw title hints from an external,
// non-catalog source: a static chart page, a rendered playlist page, or a
// paginated tracks API. The locator meaning is implementation specific.
type ChartExtractor interface {
	Extract(ctx context.Context, locator string) ([]TitleHint, error)
}

type TrackRepo interface {
	FindByID(ctx context.Context, id string) (*Track, error)
	// FindOrCreateByMediaURL returns the existing track with the same media
	// URL, or persists t and returns it. Never creates a second track for
	// the same media URL.
	FindOrCreateByMediaURL(ctx context.Context, t Track) (*Track, error)
}

type PlaylistRepo interface {
	FindByID(ctx context.Context, id string) (*Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Playlist, error)
	Insert(ctx context.Context, pl *Playlist) error
	// Save replaces the whole playlist document.
	Save(ctx context.Context, pl *Playlist) error
	Delete(ctx context.Context, id string) error
}

type TrendingRepo interface {
	// Get returns the current snapshot, or an empty snapshot before the
	// first synchronization run.
	Get(ctx context.Context) (*TrendingSnapshot, error)
	// Replace atomically swaps the whole snapshot document.
	Replace(ctx context.Context, snap *TrendingSnapshot) error
}

type UserRepo interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
}
