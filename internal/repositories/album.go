package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
)

const albumColumns = `id, title, artist, year, type, cover_art, cover_art_thumbnail, mbid, mb_release_id, created_at, updated_at`

// AlbumRepository persists albums.
type AlbumRepository struct {
	store *Store
}

// GetAll returns every album ordered by artist and title.
func (r *AlbumRepository) GetAll(ctx context.Context) ([]models.Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums ORDER BY artist COLLATE NOCASE, title COLLATE NOCASE, id`
	albums, err := queryAll(ctx, r.store.db, scanAlbum, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	return albums, nil
}

// Get retrieves an album by id.
func (r *AlbumRepository) Get(ctx context.Context, id string) (models.Album, error) {
	return getAlbum(ctx, r.store.db, id)
}

// Save inserts or replaces an album.
//
// A missing id is filled in. [Notify] saves also fill zero timestamps; [Silent] saves store the
// record exactly as given, so a synced copy matches the payload it came from.
func (r *AlbumRepository) Save(ctx context.Context, album models.Album, mode WriteMode) (models.Album, error) {
	if album.ID == "" {
		album.ID = shared.PrefixedID(string(models.KindAlbum))
	}
	if mode == Notify {
		album.Stamp(r.store.now())
		if err := album.Validate(); err != nil {
			return album, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
	}

	if err := upsertAlbum(ctx, r.store.db, album); err != nil {
		return album, err
	}
	r.store.notify(mode)
	return album, nil
}

// Update applies mutate to the stored album and records the change.
func (r *AlbumRepository) Update(ctx context.Context, id string, mutate func(*models.Album)) (models.Album, error) {
	album, err := r.Get(ctx, id)
	if err != nil {
		return album, err
	}

	mutate(&album)
	album.ID = id
	album.Touch(r.store.now())
	return r.Save(ctx, album, Notify)
}

// Delete removes an album.
//
// In [Notify] mode the album must exist; it is tombstoned and its songs are deleted the same way.
// In [Silent] mode only the album row is removed and a missing album is not an error.
func (r *AlbumRepository) Delete(ctx context.Context, id string, mode WriteMode) error {
	if mode == Silent {
		if _, err := r.store.db.ExecContext(ctx, "DELETE FROM albums WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete album: %w", err)
		}
		return nil
	}

	now := r.store.now()
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		album, err := getAlbum(ctx, tx, id)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM albums WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete album: %w", err)
		}
		if err := putTombstone(ctx, tx, models.NewTombstone(album, now)); err != nil {
			return err
		}

		songIDs, err := queryAll(ctx, tx, scanString, "SELECT id FROM songs WHERE album_id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to list album songs: %w", err)
		}
		for _, songID := range songIDs {
			if err := deleteSongTx(ctx, tx, songID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.store.notify(mode)
	return nil
}

func getAlbum(ctx context.Context, q querier, id string) (models.Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums WHERE id = ?`
	album, err := scanAlbum(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return album, notFound(err, models.KindAlbum, id)
	}
	return album, nil
}

func upsertAlbum(ctx context.Context, q querier, a models.Album) error {
	query := `
		INSERT INTO albums (` + albumColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			year = excluded.year,
			type = excluded.type,
			cover_art = excluded.cover_art,
			cover_art_thumbnail = excluded.cover_art_thumbnail,
			mbid = excluded.mbid,
			mb_release_id = excluded.mb_release_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		a.ID, a.Title, a.Artist, a.Year, a.Type, a.CoverArt, a.CoverArtThumbnail,
		a.MBID, a.MBReleaseID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save album %s: %w", a.ID, err)
	}
	return nil
}

func scanAlbum(row scanner) (models.Album, error) {
	var a models.Album
	err := row.Scan(
		&a.ID, &a.Title, &a.Artist, &a.Year, &a.Type, &a.CoverArt, &a.CoverArtThumbnail,
		&a.MBID, &a.MBReleaseID, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func scanString(row scanner) (string, error) {
	var s string
	err := row.Scan(&s)
	return s, err
}
