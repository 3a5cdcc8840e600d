package merge

import (
	"github.com/desertthunder/vibesync/internal/models"
)

// Stats merges two listening statistics blobs.
//
// Counters are combined with max, never summed, because both sides may already contain
// history exchanged in earlier syncs. A nil side yields the other side unchanged.
//
//   - dailyPlays and albumsAdded: union of days, max per day
//   - songPlays: union of ids, max count, metadata from the side with the higher count (local on ties)
//   - lastPlayed: the later play (local on ties)
//   - totals: max
func Stats(local, remote *models.Stats) *models.Stats {
	if local == nil {
		return remote
	}
	if remote == nil {
		return local
	}

	merged := &models.Stats{
		TotalPlays:         max(local.TotalPlays, remote.TotalPlays),
		TotalAlbumsAdded:   max(local.TotalAlbumsAdded, remote.TotalAlbumsAdded),
		TotalSongsWithURLs: max(local.TotalSongsWithURLs, remote.TotalSongsWithURLs),
		DailyPlays:         maxCounts(local.DailyPlays, remote.DailyPlays),
		AlbumsAdded:        maxCounts(local.AlbumsAdded, remote.AlbumsAdded),
		SongPlays:          mergeSongPlays(local.SongPlays, remote.SongPlays),
		LastPlayed:         laterPlay(local.LastPlayed, remote.LastPlayed),
		CreatedAt:          earliest(local.CreatedAt, remote.CreatedAt),
	}
	return merged
}

func maxCounts(local, remote map[string]int) map[string]int {
	out := make(map[string]int, max(len(local), len(remote)))
	for k, v := range remote {
		out[k] = v
	}
	for k, v := range local {
		out[k] = max(out[k], v)
	}
	return out
}

func mergeSongPlays(local, remote map[string]models.SongPlay) map[string]models.SongPlay {
	out := make(map[string]models.SongPlay, max(len(local), len(remote)))
	for id, r := range remote {
		out[id] = r
	}
	for id, l := range local {
		r, ok := out[id]
		if !ok || l.Count >= r.Count {
			out[id] = l
		}
	}
	return out
}

func laterPlay(local, remote *models.LastPlayed) *models.LastPlayed {
	switch {
	case local == nil:
		return remote
	case remote == nil:
		return local
	case local.Timestamp >= remote.Timestamp:
		return local
	default:
		return remote
	}
}

func earliest(a, b int64) int64 {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	default:
		return min(a, b)
	}
}
