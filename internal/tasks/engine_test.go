package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/vibesync/internal/events"
	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/repositories"
	"github.com/desertthunder/vibesync/internal/shared"
	tu "github.com/desertthunder/vibesync/internal/testing"
)

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(t events.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (r *recorder) storageUpdates(o events.Origin) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == events.StorageUpdated && e.Origin == o {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store  *repositories.Store
	remote *tu.FakeRemote
	engine *SyncEngine
	rec    *recorder
	clock  *fakeClock
	base   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	rec := &recorder{}
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := repositories.NewStore(tu.MustOpenLibrary(t), repositories.WithPublisher(rec), repositories.WithClock(clock.Now))
	remote := tu.NewFakeRemote()
	engine := NewSyncEngine(store, remote, WithEvents(rec), WithEngineClock(clock.Now))

	return &fixture{
		store:  store,
		remote: remote,
		engine: engine,
		rec:    rec,
		clock:  clock,
		base:   shared.Millis(clock.now) - 60_000,
	}
}

func album(id, title string, updatedAt int64) models.Album {
	return models.Album{
		ID: id, Title: title, Artist: "Artist",
		Timestamps: models.Timestamps{CreatedAt: updatedAt, UpdatedAt: updatedAt},
	}
}

func song(id, albumID string, updatedAt int64) models.Song {
	return models.Song{
		ID: id, AlbumID: albumID, Title: "Song " + id,
		Timestamps: models.Timestamps{CreatedAt: updatedAt, UpdatedAt: updatedAt},
	}
}

func (f *fixture) saveAlbum(t *testing.T, a models.Album) {
	t.Helper()
	if _, err := f.store.Albums.Save(context.Background(), a, repositories.Silent); err != nil {
		t.Fatalf("failed to seed album: %v", err)
	}
}

func (f *fixture) saveSong(t *testing.T, s models.Song) {
	t.Helper()
	if _, err := f.store.Songs.Save(context.Background(), s, repositories.Silent); err != nil {
		t.Fatalf("failed to seed song: %v", err)
	}
}

func (f *fixture) sync(t *testing.T) models.SyncResult {
	t.Helper()
	result, err := f.engine.PerformSync(context.Background(), nil)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	return result
}

func TestPerformSync(t *testing.T) {
	ctx := context.Background()

	t.Run("requires authentication", func(t *testing.T) {
		f := newFixture(t)
		f.remote.Authenticated = false
		f.remote.FetchErr = errors.New("should not be called")

		_, err := f.engine.PerformSync(ctx, nil)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if f.rec.count(events.SyncError) != 1 {
			t.Error("expected one sync-error event")
		}
		if f.remote.UploadCount() != 0 {
			t.Error("expected no upload")
		}
	})

	t.Run("new device join", func(t *testing.T) {
		f := newFixture(t)
		f.remote.Snapshot = &models.RemoteSnapshot{
			Albums: []models.Album{
				album("a3", "Third", f.base+3),
				album("a1", "First", f.base+1),
				album("a2", "Second", f.base+2),
			},
		}

		result := f.sync(t)
		if result.Albums != 3 || result.Songs != 0 || result.Playlists != 0 {
			t.Errorf("unexpected counts %+v", result)
		}
		if result.Timestamp != shared.Millis(f.clock.Now()) {
			t.Errorf("expected timestamp %d, got %d", shared.Millis(f.clock.Now()), result.Timestamp)
		}

		albums, _ := f.store.Albums.GetAll(ctx)
		if len(albums) != 3 {
			t.Fatalf("expected 3 local albums, got %d", len(albums))
		}
		for _, a := range albums {
			want := map[string]int64{"a1": f.base + 1, "a2": f.base + 2, "a3": f.base + 3}[a.ID]
			if a.UpdatedAt != want {
				t.Errorf("album %s updatedAt = %d, want %d", a.ID, a.UpdatedAt, want)
			}
		}

		last, _ := f.store.Settings.LastSyncDate(ctx)
		if last != result.Timestamp {
			t.Errorf("lastSyncDate = %d, want %d", last, result.Timestamp)
		}
		if f.rec.count(events.SyncCompleted) != 1 {
			t.Error("expected one sync-completed event")
		}
		if f.rec.storageUpdates(events.OriginSync) != 1 || f.rec.storageUpdates(events.OriginLocal) != 0 {
			t.Errorf("expected a single sync-origin storage update, got %+v", f.rec.events)
		}
	})

	t.Run("conflicting edit takes newer remote", func(t *testing.T) {
		f := newFixture(t)
		f.saveAlbum(t, album("x", "A", f.base+100))
		f.remote.Snapshot = &models.RemoteSnapshot{Albums: []models.Album{album("x", "B", f.base+200)}}

		f.sync(t)
		got, err := f.store.Albums.Get(ctx, "x")
		if err != nil || got.Title != "B" {
			t.Errorf("expected remote title B, got %+v, %v", got, err)
		}
		if upload := f.remote.LastUpload(); upload.Albums[0].Title != "B" {
			t.Errorf("expected upload to carry B, got %+v", upload.Albums)
		}
	})

	t.Run("local wins ties", func(t *testing.T) {
		f := newFixture(t)
		f.saveAlbum(t, album("x", "Local", f.base+100))
		f.remote.Snapshot = &models.RemoteSnapshot{Albums: []models.Album{album("x", "Remote", f.base+100)}}

		f.sync(t)
		got, _ := f.store.Albums.Get(ctx, "x")
		if got.Title != "Local" {
			t.Errorf("expected local title on tie, got %s", got.Title)
		}
	})

	t.Run("delete propagation", func(t *testing.T) {
		f := newFixture(t)
		f.store.Tombstones.Put(ctx, models.Tombstone{ID: "s1", Type: models.KindSong, UpdatedAt: f.base + 500})
		f.remote.Snapshot = &models.RemoteSnapshot{Songs: []models.Song{song("s1", "a1", f.base+300)}}

		result := f.sync(t)
		if result.Songs != 0 {
			t.Errorf("expected song to stay deleted, got %d songs", result.Songs)
		}
		if _, err := f.store.Songs.Get(ctx, "s1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected s1 absent locally, got %v", err)
		}

		upload := f.remote.LastUpload()
		if len(upload.Songs) != 0 || len(upload.Tombstones) != 1 || upload.Tombstones[0].ID != "s1" {
			t.Errorf("unexpected upload %+v", upload)
		}
	})

	t.Run("remote tombstone removes local record without new tombstones", func(t *testing.T) {
		f := newFixture(t)
		f.saveAlbum(t, album("a1", "Gone", f.base+100))
		f.remote.Snapshot = &models.RemoteSnapshot{
			Tombstones: []models.Tombstone{{ID: "a1", Type: models.KindAlbum, UpdatedAt: f.base + 200}},
		}

		f.sync(t)
		if _, err := f.store.Albums.Get(ctx, "a1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected a1 removed, got %v", err)
		}
		ledger, _ := f.store.Tombstones.GetAll(ctx)
		if len(ledger) != 1 || ledger[0].UpdatedAt != f.base+200 {
			t.Errorf("expected ledger to hold the remote tombstone only, got %+v", ledger)
		}
	})

	t.Run("resurrection", func(t *testing.T) {
		f := newFixture(t)
		f.store.Tombstones.Put(ctx, models.Tombstone{ID: "s1", Type: models.KindSong, UpdatedAt: f.base + 100})
		f.remote.Snapshot = &models.RemoteSnapshot{Songs: []models.Song{song("s1", "a1", f.base+150)}}

		f.sync(t)
		if _, err := f.store.Songs.Get(ctx, "s1"); err != nil {
			t.Errorf("expected s1 restored, got %v", err)
		}
	})

	t.Run("expired tombstones are pruned", func(t *testing.T) {
		f := newFixture(t)
		old := shared.Millis(f.clock.Now().Add(-31 * 24 * time.Hour))
		f.store.Tombstones.Put(ctx, models.Tombstone{ID: "old", Type: models.KindAlbum, UpdatedAt: old})
		f.store.Tombstones.Put(ctx, models.Tombstone{ID: "new", Type: models.KindAlbum, UpdatedAt: f.base})

		f.sync(t)
		ledger, _ := f.store.Tombstones.GetAll(ctx)
		if len(ledger) != 1 || ledger[0].ID != "new" {
			t.Errorf("expected only the recent tombstone, got %+v", ledger)
		}
	})

	t.Run("delete during sync survives", func(t *testing.T) {
		f := newFixture(t)
		f.saveAlbum(t, album("x", "Doomed", f.base+100))
		f.remote.Snapshot = &models.RemoteSnapshot{Albums: []models.Album{album("x", "Doomed", f.base+100)}}

		// The engine reads its clock once, after the local state has been loaded.
		var once sync.Once
		engine := NewSyncEngine(f.store, f.remote, WithEvents(f.rec), WithEngineClock(func() time.Time {
			once.Do(func() {
				if err := f.store.Albums.Delete(ctx, "x", repositories.Notify); err != nil {
					t.Errorf("failed to delete album: %v", err)
				}
			})
			return f.clock.Now()
		}))

		for i := range 2 {
			if _, err := engine.PerformSync(ctx, nil); err != nil {
				t.Fatalf("sync %d failed: %v", i+1, err)
			}

			if _, err := f.store.Albums.Get(ctx, "x"); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("sync %d: expected x to stay deleted, got %v", i+1, err)
			}
			ledger, _ := f.store.Tombstones.GetAll(ctx)
			if len(ledger) != 1 || ledger[0].ID != "x" {
				t.Errorf("sync %d: expected tombstone for x, got %+v", i+1, ledger)
			}

			upload := f.remote.LastUpload()
			if len(upload.Albums) != 0 || len(upload.Tombstones) != 1 {
				t.Errorf("sync %d: expected upload to carry the deletion, got %+v", i+1, upload)
			}
		}
	})

	t.Run("stats merge by max", func(t *testing.T) {
		f := newFixture(t)
		local := models.NewStats(f.clock.Now())
		local.TotalPlays = 3
		local.DailyPlays["2024-04-30"] = 3
		f.store.Settings.SaveStats(ctx, local)

		remote := models.NewStats(f.clock.Now())
		remote.TotalPlays = 5
		remote.DailyPlays["2024-04-29"] = 5
		f.remote.Snapshot = &models.RemoteSnapshot{Stats: remote}

		f.sync(t)
		merged, _ := f.store.Settings.Stats(ctx)
		if merged.TotalPlays != 5 || merged.DailyPlays["2024-04-30"] != 3 || merged.DailyPlays["2024-04-29"] != 5 {
			t.Errorf("unexpected merged stats %+v", merged)
		}
		if f.remote.LastUpload().Stats.TotalPlays != 5 {
			t.Error("expected merged stats in upload")
		}
	})

	t.Run("idempotent on stable input", func(t *testing.T) {
		f := newFixture(t)
		f.saveAlbum(t, album("a1", "Local", f.base+10))
		f.saveSong(t, song("s1", "a1", f.base+20))
		f.remote.Snapshot = &models.RemoteSnapshot{
			Albums:    []models.Album{album("a2", "Remote", f.base+30)},
			Playlists: []models.Playlist{{ID: "p1", Name: "Mix", SongIDs: []string{"s1"}, Timestamps: models.Timestamps{UpdatedAt: f.base + 40}}},
		}

		first := f.sync(t)
		albums1, _ := f.store.Albums.GetAll(ctx)
		songs1, _ := f.store.Songs.GetAll(ctx)

		f.clock.Advance(time.Minute)
		second := f.sync(t)
		albums2, _ := f.store.Albums.GetAll(ctx)
		songs2, _ := f.store.Songs.GetAll(ctx)

		if second.Timestamp <= first.Timestamp {
			t.Errorf("expected lastSynced to advance, got %d then %d", first.Timestamp, second.Timestamp)
		}
		if len(albums1) != len(albums2) || len(songs1) != len(songs2) {
			t.Fatalf("entity sets changed between syncs")
		}
		for i := range albums1 {
			if albums1[i] != albums2[i] {
				t.Errorf("album changed: %+v -> %+v", albums1[i], albums2[i])
			}
		}
		for i := range songs1 {
			if songs1[i] != songs2[i] {
				t.Errorf("song changed: %+v -> %+v", songs1[i], songs2[i])
			}
		}
	})

	t.Run("upload failure keeps local merge", func(t *testing.T) {
		f := newFixture(t)
		f.remote.Snapshot = &models.RemoteSnapshot{Albums: []models.Album{album("a1", "Remote", f.base)}}
		f.remote.UploadErr = shared.NewRemoteError(200, "quota exceeded", nil)

		_, err := f.engine.PerformSync(ctx, nil)
		if !errors.Is(err, shared.ErrRemote) {
			t.Fatalf("expected ErrRemote, got %v", err)
		}
		if _, err := f.store.Albums.Get(ctx, "a1"); err != nil {
			t.Errorf("expected merged album applied locally, got %v", err)
		}
		if last, _ := f.store.Settings.LastSyncDate(ctx); last != 0 {
			t.Errorf("expected lastSyncDate unset, got %d", last)
		}
		if f.rec.count(events.SyncError) != 1 || f.rec.count(events.SyncCompleted) != 0 {
			t.Error("expected sync-error without sync-completed")
		}
	})

	t.Run("fetch failure writes nothing", func(t *testing.T) {
		f := newFixture(t)
		f.remote.FetchErr = shared.NewRemoteError(0, "", errors.New("connection refused"))

		if _, err := f.engine.PerformSync(ctx, nil); !errors.Is(err, shared.ErrRemote) {
			t.Fatalf("expected ErrRemote, got %v", err)
		}
		if f.rec.storageUpdates(events.OriginSync) != 0 {
			t.Error("expected no storage update")
		}
	})

	t.Run("reports progress", func(t *testing.T) {
		f := newFixture(t)
		progress := make(chan ProgressUpdate, 32)

		if _, err := f.engine.PerformSync(ctx, progress); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		if len(phases) == 0 || phases[0] != FetchRemote || phases[len(phases)-1] != Complete {
			t.Errorf("unexpected phases %v", phases)
		}
		for i := 1; i < len(phases); i++ {
			if phases[i] < phases[i-1] {
				t.Errorf("phases out of order: %v", phases)
			}
		}
	})

	t.Run("concurrent calls share one cycle", func(t *testing.T) {
		f := newFixture(t)
		f.remote.Block = make(chan struct{})

		var wg sync.WaitGroup
		results := make([]models.SyncResult, 2)
		errs := make([]error, 2)
		for i := range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = f.engine.PerformSync(ctx, nil)
			}()
		}

		time.Sleep(50 * time.Millisecond)
		close(f.remote.Block)
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				t.Fatalf("sync failed: %v", err)
			}
		}
		if f.remote.UploadCount() != 1 {
			t.Errorf("expected one upload, got %d", f.remote.UploadCount())
		}
		if results[0] != results[1] {
			t.Errorf("expected shared result, got %+v and %+v", results[0], results[1])
		}
	})
}

func TestLastSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if last, err := f.engine.LastSync(ctx); err != nil || !last.IsZero() {
		t.Fatalf("expected zero time before first sync, got %v, %v", last, err)
	}

	result := f.sync(t)
	last, err := f.engine.LastSync(ctx)
	if err != nil || shared.Millis(last) != result.Timestamp {
		t.Errorf("expected %d, got %v, %v", result.Timestamp, last, err)
	}
}
