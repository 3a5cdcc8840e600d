package tasks

import (
	"fmt"

	"github.com/desertthunder/vibesync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Authenticate Phase = iota
	FetchRemote
	ReadLocal
	Merge
	ApplyDeletes
	ApplyEntities
	SaveStats
	Upload
	Complete
)

func (p Phase) String() string {
	switch p {
	case Authenticate:
		return "authenticate"
	case FetchRemote:
		return "fetch_remote"
	case ReadLocal:
		return "read_local"
	case Merge:
		return "merge"
	case ApplyDeletes:
		return "apply_deletes"
	case ApplyEntities:
		return "apply_entities"
	case SaveStats:
		return "save_stats"
	case Upload:
		return "upload"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// syncSteps is the number of phases reported by a full cycle.
const syncSteps = int(Complete) + 1

func phaseUpdate(p Phase, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   p,
		Step:    int(p) + 1,
		Total:   syncSteps,
		Message: message,
	}
}

func fetchRemoteUpdate() ProgressUpdate {
	return phaseUpdate(FetchRemote, "Fetching latest from VibeSync...")
}

func emptyRemoteUpdate() ProgressUpdate {
	return phaseUpdate(FetchRemote, "No remote data found. Preparing first upload...")
}

func readLocalUpdate() ProgressUpdate {
	return phaseUpdate(ReadLocal, "Reading local library...")
}

func mergeUpdate() ProgressUpdate {
	return phaseUpdate(Merge, "Merging data...")
}

func applyDeletesUpdate(count int) ProgressUpdate {
	return phaseUpdate(ApplyDeletes, fmt.Sprintf("Applying %d deletions...", count))
}

func applyEntitiesUpdate(albums, songs, playlists int) ProgressUpdate {
	return phaseUpdate(ApplyEntities, fmt.Sprintf(
		"Updating local library (%d albums, %d songs, %d playlists)...", albums, songs, playlists,
	))
}

func saveStatsUpdate() ProgressUpdate {
	return phaseUpdate(SaveStats, "Saving listening stats...")
}

func uploadUpdate() ProgressUpdate {
	return phaseUpdate(Upload, "Uploading to VibeSync...")
}

func completeUpdate(r models.SyncResult) ProgressUpdate {
	u := phaseUpdate(Complete, fmt.Sprintf(
		"Sync complete: %d albums, %d songs, %d playlists", r.Albums, r.Songs, r.Playlists,
	))
	u.Data = r
	return u
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
