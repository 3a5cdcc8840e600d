// Package backup exports the library to a portable JSON file and imports it back.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/repositories"
	"github.com/desertthunder/vibesync/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Version is written to every export.
const Version = "1.1"

// Metadata summarises an export.
type Metadata struct {
	TotalAlbums    int `json:"totalAlbums"`
	TotalSongs     int `json:"totalSongs"`
	TotalPlaylists int `json:"totalPlaylists"`
}

// Backup is the export file format.
type Backup struct {
	Version    string            `json:"version"`
	ExportDate time.Time         `json:"exportDate"`
	Albums     []models.Album    `json:"albums"`
	Songs      []models.Song     `json:"songs"`
	Playlists  []models.Playlist `json:"playlists"`
	Stats      *models.Stats     `json:"stats"`
	Metadata   Metadata          `json:"metadata"`
}

// ImportResult counts what [Import] wrote.
type ImportResult struct {
	Albums    int `json:"albumsImported"`
	Songs     int `json:"songsImported"`
	Playlists int `json:"playlistsImported"`
}

// Filename returns the default export file name for now.
func Filename(now time.Time) string {
	return fmt.Sprintf("vibe-music-backup-%d.json", now.UnixMilli())
}

// Export reads the whole library concurrently.
func Export(ctx context.Context, store *repositories.Store, now time.Time) (*Backup, error) {
	b := &Backup{Version: Version, ExportDate: now.UTC()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		b.Albums, err = store.Albums.GetAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		b.Songs, err = store.Songs.GetAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		b.Playlists, err = store.Playlists.GetAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		b.Stats, err = store.Settings.Stats(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read library: %w", err)
	}

	b.Albums = orEmpty(b.Albums)
	b.Songs = orEmpty(b.Songs)
	b.Playlists = orEmpty(b.Playlists)
	b.Metadata = Metadata{
		TotalAlbums:    len(b.Albums),
		TotalSongs:     len(b.Songs),
		TotalPlaylists: len(b.Playlists),
	}
	return b, nil
}

// Write encodes b as indented JSON.
func Write(w io.Writer, b *Backup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Read decodes and validates a backup.
//
// Validation problems are joined into one error wrapping [shared.ErrInvalidBackup].
func Read(r io.Reader) (*Backup, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	if problems := Validate(data); len(problems) > 0 {
		return nil, invalid(problems)
	}

	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidBackup, err)
	}
	return &b, nil
}

// Import saves every record of b as a user change, so the next sync uploads it.
//
// Stats replace the stored blob when present.
func Import(ctx context.Context, store *repositories.Store, b *Backup) (ImportResult, error) {
	var result ImportResult

	for _, a := range b.Albums {
		if _, err := store.Albums.Save(ctx, a, repositories.Notify); err != nil {
			return result, err
		}
		result.Albums++
	}
	for _, s := range b.Songs {
		if _, err := store.Songs.Save(ctx, s, repositories.Notify); err != nil {
			return result, err
		}
		result.Songs++
	}
	for _, p := range b.Playlists {
		if _, err := store.Playlists.Save(ctx, p, repositories.Notify); err != nil {
			return result, err
		}
		result.Playlists++
	}

	if b.Stats != nil {
		if err := store.Settings.SaveStats(ctx, b.Stats); err != nil {
			return result, err
		}
	}
	return result, nil
}

func invalid(problems []string) error {
	errs := make([]error, len(problems))
	for i, p := range problems {
		errs[i] = errors.New(p)
	}
	return fmt.Errorf("%w: %w", shared.ErrInvalidBackup, errors.Join(errs...))
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
