package tasks

import (
	"context"
	"encoding/json"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/repositories"
	"golang.org/x/sync/errgroup"
)

// payloadEstimate is what [PayloadSize] measures.
type payloadEstimate struct {
	Albums     []models.Album     `json:"albums"`
	Songs      []models.Song      `json:"songs"`
	Playlists  []models.Playlist  `json:"playlists"`
	Tombstones []models.Tombstone `json:"tombstones"`
	Settings   models.Settings    `json:"settings"`
}

// PayloadSize returns the size in bytes of the JSON encoding of the library.
//
// The collections are read concurrently.
func PayloadSize(ctx context.Context, store *repositories.Store) (int, error) {
	var est payloadEstimate
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		est.Albums, err = store.Albums.GetAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		est.Songs, err = store.Songs.GetAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		est.Playlists, err = store.Playlists.GetAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		est.Tombstones, err = store.Tombstones.GetAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		est.Settings, err = store.Settings.All(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return 0, err
	}

	data, err := json.Marshal(est)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// PayloadSize reports the approximate upload size, or 0 after logging a failure.
func (e *SyncEngine) PayloadSize(ctx context.Context) int {
	size, err := PayloadSize(ctx, e.store)
	if err != nil {
		e.logger.Error("failed to measure payload", "error", err)
		return 0
	}
	return size
}
