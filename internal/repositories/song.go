package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
)

const songColumns = `id, album_id, title, artist, album, position, duration, cover_art, url, has_url, created_at, updated_at`

// SongRepository persists songs.
type SongRepository struct {
	store *Store
}

// GetAll returns every song ordered by album and track position.
func (r *SongRepository) GetAll(ctx context.Context) ([]models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs ORDER BY album COLLATE NOCASE, album_id, position, id`
	songs, err := queryAll(ctx, r.store.db, scanSong, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	return songs, nil
}

// ListByAlbum returns the songs of one album in track order.
func (r *SongRepository) ListByAlbum(ctx context.Context, albumID string) ([]models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE album_id = ? ORDER BY position, id`
	songs, err := queryAll(ctx, r.store.db, scanSong, query, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs for album %s: %w", albumID, err)
	}
	return songs, nil
}

// Get retrieves a song by id.
func (r *SongRepository) Get(ctx context.Context, id string) (models.Song, error) {
	return getSong(ctx, r.store.db, id)
}

// Save inserts or replaces a song. See [AlbumRepository.Save].
func (r *SongRepository) Save(ctx context.Context, song models.Song, mode WriteMode) (models.Song, error) {
	if song.ID == "" {
		song.ID = shared.PrefixedID(string(models.KindSong))
	}
	if mode == Notify {
		song.Stamp(r.store.now())
		song.HasURL = song.URL != ""
		if err := song.Validate(); err != nil {
			return song, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
	}

	if err := upsertSong(ctx, r.store.db, song); err != nil {
		return song, err
	}
	r.store.notify(mode)
	return song, nil
}

// Update applies mutate to the stored song and records the change.
func (r *SongRepository) Update(ctx context.Context, id string, mutate func(*models.Song)) (models.Song, error) {
	song, err := r.Get(ctx, id)
	if err != nil {
		return song, err
	}

	mutate(&song)
	song.ID = id
	song.Touch(r.store.now())
	return r.Save(ctx, song, Notify)
}

// Delete removes a song.
//
// In [Notify] mode the song must exist; it is tombstoned and removed from every playlist.
// In [Silent] mode only the song row is removed.
func (r *SongRepository) Delete(ctx context.Context, id string, mode WriteMode) error {
	if mode == Silent {
		if _, err := r.store.db.ExecContext(ctx, "DELETE FROM songs WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete song: %w", err)
		}
		return nil
	}

	now := r.store.now()
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getSong(ctx, tx, id); err != nil {
			return err
		}
		return deleteSongTx(ctx, tx, id, now)
	})
	if err != nil {
		return err
	}

	r.store.notify(mode)
	return nil
}

// deleteSongTx removes a song, records its tombstone and detaches it from playlists.
func deleteSongTx(ctx context.Context, tx *sql.Tx, id string, now int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM songs WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}
	if err := putTombstone(ctx, tx, models.Tombstone{ID: id, Type: models.KindSong, UpdatedAt: now}); err != nil {
		return err
	}
	return detachSong(ctx, tx, id, now)
}

func getSong(ctx context.Context, q querier, id string) (models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = ?`
	song, err := scanSong(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return song, notFound(err, models.KindSong, id)
	}
	return song, nil
}

func upsertSong(ctx context.Context, q querier, s models.Song) error {
	query := `
		INSERT INTO songs (` + songColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			album_id = excluded.album_id,
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			position = excluded.position,
			duration = excluded.duration,
			cover_art = excluded.cover_art,
			url = excluded.url,
			has_url = excluded.has_url,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		s.ID, s.AlbumID, s.Title, s.Artist, s.Album, s.Position, s.Duration,
		s.CoverArt, s.URL, s.HasURL, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save song %s: %w", s.ID, err)
	}
	return nil
}

func scanSong(row scanner) (models.Song, error) {
	var s models.Song
	err := row.Scan(
		&s.ID, &s.AlbumID, &s.Title, &s.Artist, &s.Album, &s.Position, &s.Duration,
		&s.CoverArt, &s.URL, &s.HasURL, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}
