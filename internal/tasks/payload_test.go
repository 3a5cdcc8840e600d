package tasks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/desertthunder/vibesync/internal/models"
)

func TestPayloadSize(t *testing.T) {
	ctx := context.Background()

	t.Run("matches encoded library", func(t *testing.T) {
		f := newFixture(t)
		f.saveAlbum(t, album("a1", "First", f.base))
		f.saveSong(t, song("s1", "a1", f.base))
		f.store.Settings.Set(ctx, "theme", "dark")

		size, err := PayloadSize(ctx, f.store)
		if err != nil {
			t.Fatalf("PayloadSize() error = %v", err)
		}

		albums, _ := f.store.Albums.GetAll(ctx)
		songs, _ := f.store.Songs.GetAll(ctx)
		playlists, _ := f.store.Playlists.GetAll(ctx)
		tombstones, _ := f.store.Tombstones.GetAll(ctx)
		settings, _ := f.store.Settings.All(ctx)
		want, _ := json.Marshal(payloadEstimate{
			Albums: albums, Songs: songs, Playlists: playlists, Tombstones: tombstones, Settings: settings,
		})

		if size != len(want) {
			t.Errorf("PayloadSize() = %d, want %d", size, len(want))
		}
	})

	t.Run("grows with the library", func(t *testing.T) {
		f := newFixture(t)
		empty := f.engine.PayloadSize(ctx)

		f.saveAlbum(t, album("a1", "First", f.base))
		f.store.Tombstones.Put(ctx, models.Tombstone{ID: "gone", Type: models.KindSong, UpdatedAt: f.base})

		if got := f.engine.PayloadSize(ctx); got <= empty {
			t.Errorf("expected size to grow past %d, got %d", empty, got)
		}
	})

	t.Run("failure reports zero", func(t *testing.T) {
		f := newFixture(t)
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		if got := f.engine.PayloadSize(canceled); got != 0 {
			t.Errorf("expected 0 on failure, got %d", got)
		}
	})
}
