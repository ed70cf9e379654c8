package core

import "errors"

var (
	// ErrUnavailable indicates an external source could not be reached or
	// answered with a non-2xx status.
	ErrUnavailable = errors.New("external source unavailable")
	// ErrNoMatch indicates a search succeeded but produced no usable candidate.
	ErrNoMatch = errors.New("no match")
	// ErrNotAllowed indicates the acting identity is neither owner nor collaborator.
	ErrNotAllowed = errors.New("not allowed")
	// ErrNotFound indicates a referenced playlist, track or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates missing or malformed caller input.
	ErrValidation = errors.New("invalid input")
	// ErrNotInPlaylist indicates a removal target is absent from the playlist.
	// Kept distinct from ErrNotFound so callers can tell a missing playlist
	// from a song that simply was never added.
	ErrNotInPlaylist = errors.New("song not in playlist")
)
