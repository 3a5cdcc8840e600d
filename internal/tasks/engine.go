package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibesync/internal/events"
	"github.com/desertthunder/vibesync/internal/merge"
	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/repositories"
	"github.com/desertthunder/vibesync/internal/shared"
	"golang.org/x/sync/singleflight"
)

// RemoteClient is the part of the sync account the engine needs.
//
// Implemented by [services.SyncClient].
type RemoteClient interface {
	IsAuthenticated() bool
	FetchSnapshot(ctx context.Context) (*models.RemoteSnapshot, error)
	Upload(ctx context.Context, payload *models.SyncPayload) error
}

// SyncEngine merges the local library with the remote account.
type SyncEngine struct {
	store  *repositories.Store
	remote RemoteClient
	events events.Publisher
	clock  shared.Clock
	logger *log.Logger

	inflight singleflight.Group
}

// EngineOption configures a [SyncEngine].
type EngineOption func(*SyncEngine)

// WithEvents sets where sync-completed and sync-error notifications go.
func WithEvents(p events.Publisher) EngineOption {
	return func(e *SyncEngine) { e.events = p }
}

// WithEngineClock overrides the clock used for tombstone expiry and payload timestamps.
func WithEngineClock(c shared.Clock) EngineOption {
	return func(e *SyncEngine) { e.clock = c }
}

// WithEngineLogger sets the logger.
func WithEngineLogger(l *log.Logger) EngineOption {
	return func(e *SyncEngine) { e.logger = l }
}

// NewSyncEngine creates an engine over store and remote.
func NewSyncEngine(store *repositories.Store, remote RemoteClient, opts ...EngineOption) *SyncEngine {
	e := &SyncEngine{
		store:  store,
		remote: remote,
		events: events.Discard,
		clock:  shared.SystemClock,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = shared.NewLogger(nil)
	}
	return e
}

// PerformSync runs one sync cycle.
//
// A call made while another cycle is in flight waits for that cycle and returns its result;
// only the first caller's progress channel receives updates. Failures publish a sync-error
// event and are returned.
func (e *SyncEngine) PerformSync(ctx context.Context, progress chan<- ProgressUpdate) (models.SyncResult, error) {
	v, err, joined := e.inflight.Do("sync", func() (any, error) {
		result, err := e.run(ctx, progress)
		if err != nil {
			e.logger.Error("sync failed", "error", err)
			e.events.Publish(events.Failed(err))
			return result, err
		}

		e.logger.Info("sync complete",
			"albums", result.Albums, "songs", result.Songs, "playlists", result.Playlists)
		e.events.Publish(events.Completed(result))
		return result, nil
	})
	if joined {
		e.logger.Debug("joined in-flight sync")
	}

	result, _ := v.(models.SyncResult)
	return result, err
}

// localState is everything read from the store before merging.
type localState struct {
	albums     []models.Album
	songs      []models.Song
	playlists  []models.Playlist
	tombstones []models.Tombstone
	settings   models.Settings
	stats      *models.Stats
}

func (e *SyncEngine) run(ctx context.Context, progress chan<- ProgressUpdate) (models.SyncResult, error) {
	if !e.remote.IsAuthenticated() {
		return models.SyncResult{}, fmt.Errorf("%w: please log in to VibeSync to sync your library", shared.ErrNotAuthenticated)
	}

	sendProgress(progress, fetchRemoteUpdate())
	remote, err := e.remote.FetchSnapshot(ctx)
	if err != nil {
		return models.SyncResult{}, err
	}
	if remote == nil {
		remote = &models.RemoteSnapshot{}
	}
	if remote.Empty() {
		sendProgress(progress, emptyRemoteUpdate())
	}

	sendProgress(progress, readLocalUpdate())
	local, err := e.readLocal(ctx)
	if err != nil {
		return models.SyncResult{}, err
	}

	sendProgress(progress, mergeUpdate())
	now := e.clock()
	tombstones, err := e.mergeLedger(ctx, local.tombstones, remote.Tombstones, now)
	if err != nil {
		return models.SyncResult{}, err
	}
	albums := merge.Entities(local.albums, remote.Albums, tombstones)
	songs := merge.Entities(local.songs, remote.Songs, tombstones)
	playlists := merge.Entities(local.playlists, remote.Playlists, tombstones)
	stats := merge.Stats(local.stats, remote.Stats)

	sendProgress(progress, applyDeletesUpdate(len(tombstones)))
	if err := e.applyDeletes(ctx, tombstones); err != nil {
		return models.SyncResult{}, err
	}

	sendProgress(progress, applyEntitiesUpdate(len(albums), len(songs), len(playlists)))
	if err := e.applyEntities(ctx, albums, songs, playlists); err != nil {
		return models.SyncResult{}, err
	}

	sendProgress(progress, saveStatsUpdate())
	if err := e.store.Settings.SaveStats(ctx, stats); err != nil {
		return models.SyncResult{}, err
	}

	e.store.NotifySynced()

	if stats == nil {
		stats = local.stats
	}
	payload := &models.SyncPayload{
		Albums:     albums,
		Songs:      songs,
		Playlists:  playlists,
		Settings:   local.settings,
		Stats:      stats,
		Tombstones: tombstones,
		LastSynced: shared.Millis(e.clock()),
	}

	sendProgress(progress, uploadUpdate())
	if err := e.remote.Upload(ctx, payload); err != nil {
		return models.SyncResult{}, err
	}

	if err := e.store.Settings.SetLastSyncDate(ctx, payload.LastSynced); err != nil {
		return models.SyncResult{}, err
	}

	result := models.SyncResult{
		Albums:    len(albums),
		Songs:     len(songs),
		Playlists: len(playlists),
		Timestamp: payload.LastSynced,
	}
	sendProgress(progress, completeUpdate(result))
	return result, nil
}

// mergeLedger persists the merged deletion ledger and returns it with any tombstones written
// since readLocal, so a delete made during the sync is neither lost nor overwritten by a stale copy.
func (e *SyncEngine) mergeLedger(ctx context.Context, local, remote []models.Tombstone, now time.Time) ([]models.Tombstone, error) {
	merged := merge.Tombstones(local, remote, now)
	cutoff := shared.Millis(now.Add(-merge.RetentionWindow))
	if err := e.store.Tombstones.Merge(ctx, knownKinds(merged), cutoff); err != nil {
		return nil, err
	}

	ledger, err := e.store.Tombstones.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return merge.Tombstones(ledger, merged, now), nil
}

// readLocal loads every collection before any write happens.
func (e *SyncEngine) readLocal(ctx context.Context) (*localState, error) {
	var (
		state localState
		err   error
	)

	if state.albums, err = e.store.Albums.GetAll(ctx); err != nil {
		return nil, err
	}
	if state.songs, err = e.store.Songs.GetAll(ctx); err != nil {
		return nil, err
	}
	if state.playlists, err = e.store.Playlists.GetAll(ctx); err != nil {
		return nil, err
	}
	if state.tombstones, err = e.store.Tombstones.GetAll(ctx); err != nil {
		return nil, err
	}
	if state.settings, err = e.store.Settings.All(ctx); err != nil {
		return nil, err
	}
	if state.stats, err = e.store.Settings.Stats(ctx); err != nil {
		return nil, err
	}
	return &state, nil
}

// applyDeletes removes every record named by the merged ledger without creating tombstones.
//
// Records that survived the merge are written back by applyEntities afterwards.
func (e *SyncEngine) applyDeletes(ctx context.Context, tombstones []models.Tombstone) error {
	for _, t := range tombstones {
		var err error
		switch t.Type {
		case models.KindAlbum:
			err = e.store.Albums.Delete(ctx, t.ID, repositories.Silent)
		case models.KindSong:
			err = e.store.Songs.Delete(ctx, t.ID, repositories.Silent)
		case models.KindPlaylist:
			err = e.store.Playlists.Delete(ctx, t.ID, repositories.Silent)
		default:
			e.logger.Warn("skipping tombstone with unknown type", "id", t.ID, "type", t.Type)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// applyEntities writes the merged collections as given, keeping their timestamps.
func (e *SyncEngine) applyEntities(ctx context.Context, albums []models.Album, songs []models.Song, playlists []models.Playlist) error {
	for _, a := range albums {
		if _, err := e.store.Albums.Save(ctx, a, repositories.Silent); err != nil {
			return err
		}
	}
	for _, s := range songs {
		if _, err := e.store.Songs.Save(ctx, s, repositories.Silent); err != nil {
			return err
		}
	}
	for _, p := range playlists {
		if _, err := e.store.Playlists.Save(ctx, p, repositories.Silent); err != nil {
			return err
		}
	}
	return nil
}

// knownKinds drops tombstones the local ledger cannot store.
func knownKinds(tombstones []models.Tombstone) []models.Tombstone {
	out := make([]models.Tombstone, 0, len(tombstones))
	for _, t := range tombstones {
		if t.Type.Valid() {
			out = append(out, t)
		}
	}
	return out
}

// LastSync returns the time of the last successful sync, or the zero time.
func (e *SyncEngine) LastSync(ctx context.Context) (time.Time, error) {
	ms, err := e.store.Settings.LastSyncDate(ctx)
	if err != nil || ms == 0 {
		return time.Time{}, err
	}
	return shared.FromMillis(ms), nil
}
