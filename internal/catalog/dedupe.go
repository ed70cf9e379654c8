package catalog

import "melodex/internal/core"

// Dedupe returns the tracks unique by id, first occurrence winning. Pure.
func Dedupe(tracks []core.Track) []core.Track {
	return uniqueBy(tracks, func(t core.Track) string { return t.ID })
}

// DedupeItems deduplicates browse items by id, first occurrence winning.
func DedupeItems(items []core.CatalogItem) []core.CatalogItem {
	return uniqueBy(items, func(i core.CatalogItem) string { return i.ID })
}

func uniqueBy[T any](items []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}
