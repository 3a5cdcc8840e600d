package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/vibesync/internal/events"
	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
)

// recorder collects published events.
type recorder struct {
	events []events.Event
}

func (r *recorder) Publish(e events.Event) { r.events = append(r.events, e) }

func (r *recorder) count(o events.Origin) int {
	n := 0
	for _, e := range r.events {
		if e.Type == events.StorageUpdated && e.Origin == o {
			n++
		}
	}
	return n
}

// fakeClock returns a fixed, advanceable time.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func setupTestStore(t *testing.T) (*Store, *recorder, *fakeClock) {
	t.Helper()

	rec := &recorder{}
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStore(setupTestDB(t), WithPublisher(rec), WithClock(clock.Now))
	return store, rec, clock
}

func seedAlbum(t *testing.T, store *Store, title string, songTitles ...string) (models.Album, []models.Song) {
	t.Helper()

	songs := make([]models.Song, len(songTitles))
	for i, title := range songTitles {
		songs[i] = models.Song{Title: title, URL: "https://example.com/" + title}
	}

	album, saved, err := store.AddAlbum(context.Background(), models.Album{Title: title, Artist: "Artist"}, songs)
	if err != nil {
		t.Fatalf("failed to add album: %v", err)
	}
	return album, saved
}

func TestWriteModeString(t *testing.T) {
	if Notify.String() != "notify" || Silent.String() != "silent" {
		t.Error("unexpected write mode names")
	}
}

func TestAlbumRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Save fills id and timestamps", func(t *testing.T) {
		store, rec, clock := setupTestStore(t)

		album, err := store.Albums.Save(ctx, models.Album{Title: "Blue", Artist: "Joni"}, Notify)
		if err != nil {
			t.Fatalf("failed to save album: %v", err)
		}

		if len(album.ID) <= len("album_") || album.ID[:6] != "album_" {
			t.Errorf("expected album_ id, got %s", album.ID)
		}
		if album.CreatedAt != clock.now.UnixMilli() || album.UpdatedAt != album.CreatedAt {
			t.Errorf("unexpected timestamps %+v", album.Timestamps)
		}
		if rec.count(events.OriginLocal) != 1 {
			t.Errorf("expected one local storage update, got %d", rec.count(events.OriginLocal))
		}

		got, err := store.Albums.Get(ctx, album.ID)
		if err != nil {
			t.Fatalf("failed to get album: %v", err)
		}
		if got != album {
			t.Errorf("Get() = %+v, want %+v", got, album)
		}
	})

	t.Run("Notify save validates", func(t *testing.T) {
		store, _, _ := setupTestStore(t)

		_, err := store.Albums.Save(ctx, models.Album{Title: "No artist"}, Notify)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Silent save keeps timestamps and is idempotent", func(t *testing.T) {
		store, rec, _ := setupTestStore(t)
		remote := models.Album{ID: "a1", Title: "Remote", Artist: "X", Timestamps: models.Timestamps{CreatedAt: 10, UpdatedAt: 20}}

		for range 2 {
			if _, err := store.Albums.Save(ctx, remote, Silent); err != nil {
				t.Fatalf("failed to save album: %v", err)
			}
		}

		got, err := store.Albums.Get(ctx, "a1")
		if err != nil {
			t.Fatalf("failed to get album: %v", err)
		}
		if got.CreatedAt != 10 || got.UpdatedAt != 20 {
			t.Errorf("silent save changed timestamps: %+v", got.Timestamps)
		}
		if len(rec.events) != 0 {
			t.Errorf("silent save should not publish, got %d events", len(rec.events))
		}

		all, err := store.Albums.GetAll(ctx)
		if err != nil {
			t.Fatalf("failed to list albums: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("expected 1 album, got %d", len(all))
		}
	})

	t.Run("Silent save leaves zero timestamps alone", func(t *testing.T) {
		store, _, _ := setupTestStore(t)

		if _, err := store.Albums.Save(ctx, models.Album{ID: "a0", Title: "Legacy", Artist: "X"}, Silent); err != nil {
			t.Fatalf("failed to save album: %v", err)
		}
		if _, err := store.Songs.Save(ctx, models.Song{ID: "s0", AlbumID: "a0", Title: "Legacy"}, Silent); err != nil {
			t.Fatalf("failed to save song: %v", err)
		}
		if _, err := store.Playlists.Save(ctx, models.Playlist{ID: "p0", Name: "Legacy"}, Silent); err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}

		album, _ := store.Albums.Get(ctx, "a0")
		song, _ := store.Songs.Get(ctx, "s0")
		playlist, _ := store.Playlists.Get(ctx, "p0")
		for name, ts := range map[string]models.Timestamps{
			"album": album.Timestamps, "song": song.Timestamps, "playlist": playlist.Timestamps,
		} {
			if ts.CreatedAt != 0 || ts.UpdatedAt != 0 {
				t.Errorf("%s: silent save stamped %+v", name, ts)
			}
		}
	})

	t.Run("Update bumps updatedAt", func(t *testing.T) {
		store, _, clock := setupTestStore(t)
		album, _ := seedAlbum(t, store, "Old")

		clock.Advance(time.Minute)
		updated, err := store.Albums.Update(ctx, album.ID, func(a *models.Album) { a.Title = "New" })
		if err != nil {
			t.Fatalf("failed to update album: %v", err)
		}

		if updated.Title != "New" || updated.UpdatedAt != clock.now.UnixMilli() {
			t.Errorf("unexpected album after update %+v", updated)
		}
		if updated.CreatedAt != album.CreatedAt {
			t.Error("update should not change createdAt")
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		store, _, _ := setupTestStore(t)

		if _, err := store.Albums.Get(ctx, "nope"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Notify delete cascades", func(t *testing.T) {
		store, rec, clock := setupTestStore(t)
		album, songs := seedAlbum(t, store, "Doomed", "one", "two")
		keep, keepSongs := seedAlbum(t, store, "Kept", "three")

		playlist, err := store.Playlists.Save(ctx, models.Playlist{
			Name:    "Mix",
			SongIDs: []string{songs[0].ID, keepSongs[0].ID, songs[1].ID},
		}, Notify)
		if err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}

		clock.Advance(time.Hour)
		before := len(rec.events)
		if err := store.Albums.Delete(ctx, album.ID, Notify); err != nil {
			t.Fatalf("failed to delete album: %v", err)
		}
		if len(rec.events) != before+1 {
			t.Errorf("expected exactly one event for the delete, got %d", len(rec.events)-before)
		}

		remaining, err := store.Songs.GetAll(ctx)
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(remaining) != 1 || remaining[0].AlbumID != keep.ID {
			t.Errorf("expected only the kept song, got %+v", remaining)
		}

		tombs, err := store.Tombstones.GetAll(ctx)
		if err != nil {
			t.Fatalf("failed to list tombstones: %v", err)
		}
		if len(tombs) != 3 {
			t.Fatalf("expected album and two song tombstones, got %+v", tombs)
		}
		for _, tomb := range tombs {
			if tomb.UpdatedAt != clock.now.UnixMilli() {
				t.Errorf("unexpected tombstone time %+v", tomb)
			}
		}

		got, err := store.Playlists.Get(ctx, playlist.ID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if len(got.SongIDs) != 1 || got.SongIDs[0] != keepSongs[0].ID {
			t.Errorf("expected deleted songs detached, got %v", got.SongIDs)
		}
		if got.UpdatedAt <= playlist.UpdatedAt {
			t.Error("detaching songs should bump the playlist's updatedAt")
		}
	})

	t.Run("Notify delete missing", func(t *testing.T) {
		store, _, _ := setupTestStore(t)

		if err := store.Albums.Delete(ctx, "nope", Notify); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Silent delete removes only the record", func(t *testing.T) {
		store, rec, _ := setupTestStore(t)
		album, songs := seedAlbum(t, store, "Quiet", "one")
		before := len(rec.events)

		if err := store.Albums.Delete(ctx, album.ID, Silent); err != nil {
			t.Fatalf("failed to delete album: %v", err)
		}
		if err := store.Albums.Delete(ctx, album.ID, Silent); err != nil {
			t.Fatalf("silent delete of a missing album should be a no-op: %v", err)
		}

		if _, err := store.Songs.Get(ctx, songs[0].ID); err != nil {
			t.Errorf("silent delete should not cascade: %v", err)
		}
		tombs, _ := store.Tombstones.GetAll(ctx)
		if len(tombs) != 0 {
			t.Errorf("silent delete should not write tombstones, got %+v", tombs)
		}
		if len(rec.events) != before {
			t.Error("silent delete should not publish")
		}
	})
}

func TestSongRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("ListByAlbum", func(t *testing.T) {
		store, _, _ := setupTestStore(t)
		album, _ := seedAlbum(t, store, "Ordered", "a", "b", "c")

		songs, err := store.Songs.ListByAlbum(ctx, album.ID)
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(songs) != 3 {
			t.Fatalf("expected 3 songs, got %d", len(songs))
		}
		for i, s := range songs {
			if s.Position != i+1 || !s.HasURL || s.Album != "Ordered" || s.Artist != "Artist" {
				t.Errorf("unexpected song %+v", s)
			}
		}
	})

	t.Run("Notify delete detaches and tombstones", func(t *testing.T) {
		store, _, _ := setupTestStore(t)
		_, songs := seedAlbum(t, store, "Album", "a", "b")

		if _, err := store.Playlists.ToggleLike(ctx, songs[0].ID); err != nil {
			t.Fatalf("failed to like song: %v", err)
		}
		if err := store.Songs.Delete(ctx, songs[0].ID, Notify); err != nil {
			t.Fatalf("failed to delete song: %v", err)
		}

		liked, err := store.Playlists.Get(ctx, models.LikedMusicID)
		if err != nil {
			t.Fatalf("failed to get liked playlist: %v", err)
		}
		if len(liked.SongIDs) != 0 {
			t.Errorf("expected song removed from liked music, got %v", liked.SongIDs)
		}

		tombs, _ := store.Tombstones.GetAll(ctx)
		if len(tombs) != 1 || tombs[0].ID != songs[0].ID || tombs[0].Type != models.KindSong {
			t.Errorf("unexpected tombstones %+v", tombs)
		}
	})

	t.Run("Update", func(t *testing.T) {
		store, _, _ := setupTestStore(t)
		_, songs := seedAlbum(t, store, "Album", "a")

		updated, err := store.Songs.Update(ctx, songs[0].ID, func(s *models.Song) { s.URL = "" })
		if err != nil {
			t.Fatalf("failed to update song: %v", err)
		}
		if updated.HasURL {
			t.Error("clearing the url should clear hasUrl")
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("AddSong and RemoveSong", func(t *testing.T) {
		store, _, _ := setupTestStore(t)
		_, songs := seedAlbum(t, store, "Album", "a", "b")

		playlist, err := store.Playlists.Save(ctx, models.Playlist{Name: "Road trip"}, Notify)
		if err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}
		if playlist.Type != models.PlaylistManual || playlist.SongIDs == nil {
			t.Errorf("unexpected defaults %+v", playlist)
		}

		for _, s := range []models.Song{songs[0], songs[1], songs[0]} {
			if playlist, err = store.Playlists.AddSong(ctx, playlist.ID, s.ID); err != nil {
				t.Fatalf("failed to add song: %v", err)
			}
		}
		if len(playlist.SongIDs) != 2 {
			t.Errorf("expected 2 songs without duplicates, got %v", playlist.SongIDs)
		}

		if _, err := store.Playlists.AddSong(ctx, playlist.ID, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown song, got %v", err)
		}

		playlist, err = store.Playlists.RemoveSong(ctx, playlist.ID, songs[0].ID)
		if err != nil {
			t.Fatalf("failed to remove song: %v", err)
		}
		if len(playlist.SongIDs) != 1 || playlist.SongIDs[0] != songs[1].ID {
			t.Errorf("unexpected songs after remove %v", playlist.SongIDs)
		}
	})

	t.Run("ToggleLike", func(t *testing.T) {
		store, _, _ := setupTestStore(t)
		_, songs := seedAlbum(t, store, "Album", "a")

		liked, err := store.Playlists.ToggleLike(ctx, songs[0].ID)
		if err != nil || !liked {
			t.Fatalf("expected song liked, got %v, %v", liked, err)
		}

		liked, err = store.Playlists.ToggleLike(ctx, songs[0].ID)
		if err != nil || liked {
			t.Fatalf("expected song unliked, got %v, %v", liked, err)
		}

		playlist, err := store.Playlists.Get(ctx, models.LikedMusicID)
		if err != nil {
			t.Fatalf("failed to get liked playlist: %v", err)
		}
		if !playlist.IsSystem() || playlist.Name != LikedMusicName {
			t.Errorf("unexpected liked playlist %+v", playlist)
		}
	})

	t.Run("System playlist cannot be deleted", func(t *testing.T) {
		store, _, _ := setupTestStore(t)
		if _, err := store.Playlists.EnsureLiked(ctx); err != nil {
			t.Fatalf("failed to create liked playlist: %v", err)
		}

		if err := store.Playlists.Delete(ctx, models.LikedMusicID, Notify); !errors.Is(err, shared.ErrSystemPlaylist) {
			t.Errorf("expected ErrSystemPlaylist, got %v", err)
		}
	})

	t.Run("Notify delete writes a tombstone", func(t *testing.T) {
		store, _, _ := setupTestStore(t)
		playlist, err := store.Playlists.Save(ctx, models.Playlist{Name: "Temp"}, Notify)
		if err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}

		if err := store.Playlists.Delete(ctx, playlist.ID, Notify); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}

		tombs, _ := store.Tombstones.GetAll(ctx)
		if len(tombs) != 1 || tombs[0].Type != models.KindPlaylist {
			t.Errorf("unexpected tombstones %+v", tombs)
		}
	})
}

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Get and Set", func(t *testing.T) {
		store, rec, _ := setupTestStore(t)

		var theme string
		ok, err := store.Settings.Get(ctx, "theme", &theme)
		if err != nil || ok {
			t.Fatalf("expected missing setting, got %v, %v", ok, err)
		}

		if err := store.Settings.Set(ctx, "theme", "dark"); err != nil {
			t.Fatalf("failed to set setting: %v", err)
		}
		ok, err = store.Settings.Get(ctx, "theme", &theme)
		if err != nil || !ok || theme != "dark" {
			t.Errorf("Get() = %q, %v, %v", theme, ok, err)
		}

		if len(rec.events) != 0 {
			t.Error("settings writes should not publish")
		}
	})

	t.Run("All", func(t *testing.T) {
		store, _, _ := setupTestStore(t)
		store.Settings.Set(ctx, "volume", 7)
		store.Settings.SetLastSyncDate(ctx, 1234)

		all, err := store.Settings.All(ctx)
		if err != nil {
			t.Fatalf("failed to list settings: %v", err)
		}
		if string(all["volume"]) != "7" || string(all[models.LastSyncDateKey]) != "1234" {
			t.Errorf("unexpected settings %v", all)
		}

		last, err := store.Settings.LastSyncDate(ctx)
		if err != nil || last != 1234 {
			t.Errorf("LastSyncDate() = %d, %v", last, err)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		store, _, _ := setupTestStore(t)

		stats, err := store.Settings.Stats(ctx)
		if err != nil || stats != nil {
			t.Fatalf("expected no stats, got %+v, %v", stats, err)
		}

		_, songs := seedAlbum(t, store, "Album", "a")
		if _, err := store.RecordPlay(ctx, songs[0].ID); err != nil {
			t.Fatalf("failed to record play: %v", err)
		}

		stats, err = store.Settings.Stats(ctx)
		if err != nil {
			t.Fatalf("failed to load stats: %v", err)
		}
		if stats.TotalPlays != 1 || stats.TotalAlbumsAdded != 1 || stats.TotalSongsWithURLs != 1 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if stats.LastPlayed == nil || stats.LastPlayed.SongID != songs[0].ID {
			t.Errorf("unexpected lastPlayed %+v", stats.LastPlayed)
		}

		if _, err := store.RecordPlay(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTombstoneRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Put keeps the later timestamp", func(t *testing.T) {
		store, _, _ := setupTestStore(t)

		store.Tombstones.Put(ctx, models.Tombstone{ID: "x", Type: models.KindSong, UpdatedAt: 200})
		store.Tombstones.Put(ctx, models.Tombstone{ID: "x", Type: models.KindSong, UpdatedAt: 100})

		tombs, err := store.Tombstones.GetAll(ctx)
		if err != nil {
			t.Fatalf("failed to list tombstones: %v", err)
		}
		if len(tombs) != 1 || tombs[0].UpdatedAt != 200 {
			t.Errorf("unexpected tombstones %+v", tombs)
		}
	})

	t.Run("Put rejects unknown types", func(t *testing.T) {
		store, _, _ := setupTestStore(t)
		if err := store.Tombstones.Put(ctx, models.Tombstone{ID: "x", Type: "artist", UpdatedAt: 1}); err == nil {
			t.Error("expected error for unknown type")
		}
	})

	t.Run("Merge", func(t *testing.T) {
		store, _, _ := setupTestStore(t)
		store.Tombstones.Put(ctx, models.Tombstone{ID: "expired", Type: models.KindAlbum, UpdatedAt: 1})
		store.Tombstones.Put(ctx, models.Tombstone{ID: "kept", Type: models.KindSong, UpdatedAt: 8})
		store.Tombstones.Put(ctx, models.Tombstone{ID: "a", Type: models.KindAlbum, UpdatedAt: 9})

		next := []models.Tombstone{
			{ID: "a", Type: models.KindAlbum, UpdatedAt: 5},
			{ID: "b", Type: models.KindPlaylist, UpdatedAt: 6},
			{ID: "cutoff", Type: models.KindSong, UpdatedAt: 3},
		}
		if err := store.Tombstones.Merge(ctx, next, 3); err != nil {
			t.Fatalf("failed to merge tombstones: %v", err)
		}

		tombs, _ := store.Tombstones.GetAll(ctx)
		want := map[string]int64{"a": 9, "b": 6, "kept": 8}
		if len(tombs) != len(want) {
			t.Fatalf("unexpected tombstones %+v", tombs)
		}
		for _, tomb := range tombs {
			if want[tomb.ID] != tomb.UpdatedAt {
				t.Errorf("tombstone %s at %d, want %d", tomb.ID, tomb.UpdatedAt, want[tomb.ID])
			}
		}
	})
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Counts and ClearAll", func(t *testing.T) {
		store, _, _ := setupTestStore(t)
		album, _ := seedAlbum(t, store, "Album", "a", "b")
		store.Albums.Delete(ctx, album.ID, Notify)
		seedAlbum(t, store, "Other", "c")

		counts, err := store.Counts(ctx)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		want := LibraryCounts{Albums: 1, Songs: 1, Playlists: 0, Tombstones: 3}
		if counts != want {
			t.Errorf("Counts() = %+v, want %+v", counts, want)
		}

		if err := store.ClearAll(ctx); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		counts, _ = store.Counts(ctx)
		if counts != (LibraryCounts{}) {
			t.Errorf("expected empty store, got %+v", counts)
		}
	})

	t.Run("NotifySynced", func(t *testing.T) {
		store, rec, _ := setupTestStore(t)
		store.NotifySynced()

		if rec.count(events.OriginSync) != 1 || rec.count(events.OriginLocal) != 0 {
			t.Errorf("unexpected events %+v", rec.events)
		}
	})

	t.Run("AddAlbum validates songs", func(t *testing.T) {
		store, _, _ := setupTestStore(t)

		_, _, err := store.AddAlbum(ctx, models.Album{Title: "A", Artist: "B"}, []models.Song{{}})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
