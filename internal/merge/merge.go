package merge

import (
	"cmp"
	"slices"
	"time"

	"github.com/desertthunder/vibesync/internal/models"
)

// RetentionWindow is how long a tombstone is kept after the deletion it records.
//
// A device offline for longer than this can bring deleted records back on its next sync.
const RetentionWindow = 30 * 24 * time.Hour

// Entities merges local and remote collections of one kind.
//
// Local entities are pooled first, then remote ones; a remote entity replaces the pooled one
// only when its UpdatedAt is strictly greater, so local wins exact ties. Entities without an
// id are dropped. A tombstone removes the entity with the same id when the tombstone is
// strictly newer than the entity.
func Entities[T models.Entity](local, remote []T, tombstones []models.Tombstone) []T {
	pool := make(map[string]T, len(local)+len(remote))

	add := func(items []T) {
		for _, item := range items {
			id := item.EntityID()
			if id == "" {
				continue
			}
			current, ok := pool[id]
			if !ok || item.LastModified() > current.LastModified() {
				pool[id] = item
			}
		}
	}
	add(local)
	add(remote)

	deletedAt := make(map[string]int64, len(tombstones))
	for _, t := range tombstones {
		if t.UpdatedAt > deletedAt[t.ID] {
			deletedAt[t.ID] = t.UpdatedAt
		}
	}

	out := make([]T, 0, len(pool))
	for id, item := range pool {
		if ts, ok := deletedAt[id]; ok && ts > item.LastModified() {
			continue
		}
		out = append(out, item)
	}

	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(a.EntityID(), b.EntityID()) })
	return out
}

// Tombstones merges two deletion ledgers and drops entries older than [RetentionWindow] at now.
//
// For each id the tombstone with the greatest UpdatedAt is kept. A tombstone stamped exactly
// at the cutoff is treated as expired.
func Tombstones(local, remote []models.Tombstone, now time.Time) []models.Tombstone {
	pool := make(map[string]models.Tombstone, len(local)+len(remote))

	for _, items := range [][]models.Tombstone{remote, local} {
		for _, t := range items {
			if t.ID == "" {
				continue
			}
			if current, ok := pool[t.ID]; !ok || t.UpdatedAt > current.UpdatedAt {
				pool[t.ID] = t
			}
		}
	}

	cutoff := now.Add(-RetentionWindow).UnixMilli()
	out := make([]models.Tombstone, 0, len(pool))
	for _, t := range pool {
		if t.UpdatedAt > cutoff {
			out = append(out, t)
		}
	}

	slices.SortFunc(out, func(a, b models.Tombstone) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Expired reports whether t falls outside the retention window at now.
func Expired(t models.Tombstone, now time.Time) bool {
	return t.UpdatedAt <= now.Add(-RetentionWindow).UnixMilli()
}
