// Package playlist mediates authorization-gated mutation of user-owned
// playlists against the aggregated catalog.
package playlist

import (
	"slices"

	"melodex/internal/core"
)

// Authorize is the pure authorization predicate: the owner and every listed
// collaborator may mutate, nobody else. The owner is never listed in the
// collaborator set.
func Authorize(pl *core.Playlist, identity string) core.Role {
	if identity == "" {
		return core.RoleNone
	}
	if pl.Owner == identity {
		return core.RoleOwner
	}
	if slices.Contains(pl.Collaborators, identity) {
		return core.RoleCollaborator
	}
	return core.RoleNone
}
