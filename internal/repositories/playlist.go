package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
)

const playlistColumns = `id, name, description, type, song_ids, created_at, updated_at`

// LikedMusicName is the display name of the liked songs playlist.
const LikedMusicName = "Liked Music"

// PlaylistRepository persists playlists. Song ids are stored as a JSON array.
type PlaylistRepository struct {
	store *Store
}

// GetAll returns every playlist, system playlists first, then by name.
func (r *PlaylistRepository) GetAll(ctx context.Context) ([]models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists
		ORDER BY CASE type WHEN 'system' THEN 0 ELSE 1 END, name COLLATE NOCASE, id`
	playlists, err := queryAll(ctx, r.store.db, scanPlaylist, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

// Get retrieves a playlist by id.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (models.Playlist, error) {
	return getPlaylist(ctx, r.store.db, id)
}

// Save inserts or replaces a playlist. See [AlbumRepository.Save].
func (r *PlaylistRepository) Save(ctx context.Context, playlist models.Playlist, mode WriteMode) (models.Playlist, error) {
	if playlist.ID == "" {
		playlist.ID = shared.PrefixedID(string(models.KindPlaylist))
	}
	if playlist.Type == "" {
		playlist.Type = models.PlaylistManual
	}
	if playlist.SongIDs == nil {
		playlist.SongIDs = []string{}
	}
	if mode == Notify {
		playlist.Stamp(r.store.now())
		if err := playlist.Validate(); err != nil {
			return playlist, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
	}

	if err := upsertPlaylist(ctx, r.store.db, playlist); err != nil {
		return playlist, err
	}
	r.store.notify(mode)
	return playlist, nil
}

// Update applies mutate to the stored playlist and records the change.
func (r *PlaylistRepository) Update(ctx context.Context, id string, mutate func(*models.Playlist)) (models.Playlist, error) {
	playlist, err := r.Get(ctx, id)
	if err != nil {
		return playlist, err
	}

	mutate(&playlist)
	playlist.ID = id
	playlist.Touch(r.store.now())
	return r.Save(ctx, playlist, Notify)
}

// Delete removes a playlist.
//
// System playlists cannot be deleted in [Notify] mode. Songs are not touched.
func (r *PlaylistRepository) Delete(ctx context.Context, id string, mode WriteMode) error {
	if mode == Silent {
		if _, err := r.store.db.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete playlist: %w", err)
		}
		return nil
	}

	now := r.store.now()
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		playlist, err := getPlaylist(ctx, tx, id)
		if err != nil {
			return err
		}
		if playlist.IsSystem() {
			return fmt.Errorf("%w: %s", shared.ErrSystemPlaylist, playlist.Name)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete playlist: %w", err)
		}
		return putTombstone(ctx, tx, models.NewTombstone(playlist, now))
	})
	if err != nil {
		return err
	}

	r.store.notify(mode)
	return nil
}

// AddSong appends songID to a playlist unless it is already there.
func (r *PlaylistRepository) AddSong(ctx context.Context, playlistID, songID string) (models.Playlist, error) {
	if _, err := r.store.Songs.Get(ctx, songID); err != nil {
		return models.Playlist{}, err
	}

	playlist, err := r.Get(ctx, playlistID)
	if err != nil {
		return playlist, err
	}
	if playlist.Contains(songID) {
		return playlist, nil
	}

	return r.Update(ctx, playlistID, func(p *models.Playlist) {
		p.SongIDs = append(p.SongIDs, songID)
	})
}

// RemoveSong removes songID from a playlist.
func (r *PlaylistRepository) RemoveSong(ctx context.Context, playlistID, songID string) (models.Playlist, error) {
	playlist, err := r.Get(ctx, playlistID)
	if err != nil {
		return playlist, err
	}
	if !playlist.Contains(songID) {
		return playlist, nil
	}

	return r.Update(ctx, playlistID, func(p *models.Playlist) {
		p.SongIDs, _ = p.Without(songID)
	})
}

// EnsureLiked returns the liked songs playlist, creating it on first use.
func (r *PlaylistRepository) EnsureLiked(ctx context.Context) (models.Playlist, error) {
	playlist, err := r.Get(ctx, models.LikedMusicID)
	if err == nil {
		return playlist, nil
	}
	if !isNotFound(err) {
		return playlist, err
	}

	return r.Save(ctx, models.Playlist{
		ID:          models.LikedMusicID,
		Name:        LikedMusicName,
		Description: "Songs you liked",
		Type:        models.PlaylistSystem,
		SongIDs:     []string{},
	}, Notify)
}

// ToggleLike adds songID to the liked songs playlist, or removes it when already liked.
//
// Reports whether the song is liked afterwards.
func (r *PlaylistRepository) ToggleLike(ctx context.Context, songID string) (bool, error) {
	if _, err := r.store.Songs.Get(ctx, songID); err != nil {
		return false, err
	}

	liked, err := r.EnsureLiked(ctx)
	if err != nil {
		return false, err
	}

	if liked.Contains(songID) {
		_, err = r.RemoveSong(ctx, liked.ID, songID)
		return false, err
	}
	_, err = r.Update(ctx, liked.ID, func(p *models.Playlist) {
		p.SongIDs = append(p.SongIDs, songID)
	})
	return err == nil, err
}

// detachSong removes songID from every playlist that lists it, bumping each playlist's UpdatedAt.
func detachSong(ctx context.Context, q querier, songID string, now int64) error {
	query := `SELECT ` + playlistColumns + ` FROM playlists
		WHERE EXISTS (SELECT 1 FROM json_each(playlists.song_ids) WHERE json_each.value = ?)`
	playlists, err := queryAll(ctx, q, scanPlaylist, query, songID)
	if err != nil {
		return fmt.Errorf("failed to find playlists for song %s: %w", songID, err)
	}

	for _, p := range playlists {
		p.SongIDs, _ = p.Without(songID)
		p.Touch(now)
		if err := upsertPlaylist(ctx, q, p); err != nil {
			return err
		}
	}
	return nil
}

func getPlaylist(ctx context.Context, q querier, id string) (models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`
	playlist, err := scanPlaylist(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return playlist, notFound(err, models.KindPlaylist, id)
	}
	return playlist, nil
}

func upsertPlaylist(ctx context.Context, q querier, p models.Playlist) error {
	songIDs := p.SongIDs
	if songIDs == nil {
		songIDs = []string{}
	}
	encoded, err := json.Marshal(songIDs)
	if err != nil {
		return fmt.Errorf("failed to encode song ids: %w", err)
	}

	query := `
		INSERT INTO playlists (` + playlistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			type = excluded.type,
			song_ids = excluded.song_ids,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`
	_, err = q.ExecContext(ctx, query,
		p.ID, p.Name, p.Description, string(p.Type), string(encoded), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save playlist %s: %w", p.ID, err)
	}
	return nil
}

func scanPlaylist(row scanner) (models.Playlist, error) {
	var (
		p        models.Playlist
		songIDs  string
		typeName string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &typeName, &songIDs, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}

	p.Type = models.PlaylistType(typeName)
	p.SongIDs = []string{}
	if err := json.Unmarshal([]byte(songIDs), &p.SongIDs); err != nil {
		return p, fmt.Errorf("failed to decode song ids for playlist %s: %w", p.ID, err)
	}
	return p, nil
}
