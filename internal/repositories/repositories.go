package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/vibesync/internal/events"
	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
)

// WriteMode selects whether a write is user-visible.
type WriteMode int

const (
	// Notify publishes a storage update and, for deletes, records a tombstone.
	Notify WriteMode = iota
	// Silent writes the record only. Used when applying merged sync state.
	Silent
)

func (m WriteMode) String() string {
	switch m {
	case Notify:
		return "notify"
	case Silent:
		return "silent"
	default:
		return ""
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Store is the local library.
type Store struct {
	db     *sql.DB
	events events.Publisher
	clock  shared.Clock

	Albums     *AlbumRepository
	Songs      *SongRepository
	Playlists  *PlaylistRepository
	Settings   *SettingsRepository
	Tombstones *TombstoneRepository
}

// Option configures a [Store].
type Option func(*Store)

// WithPublisher sets where storage-updated events go. Defaults to [events.Discard].
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.events = p }
}

// WithClock overrides the wall clock used for new timestamps.
func WithClock(c shared.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// NewStore creates a Store over a migrated database.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, events: events.Discard, clock: shared.SystemClock}
	for _, opt := range opts {
		opt(s)
	}

	s.Albums = &AlbumRepository{store: s}
	s.Songs = &SongRepository{store: s}
	s.Playlists = &PlaylistRepository{store: s}
	s.Settings = &SettingsRepository{store: s}
	s.Tombstones = &TombstoneRepository{store: s}
	return s
}

func (s *Store) now() int64 {
	return shared.Millis(s.clock())
}

// notify publishes a local storage update for Notify writes.
func (s *Store) notify(mode WriteMode) {
	if mode == Notify {
		s.events.Publish(events.StorageChanged(events.OriginLocal))
	}
}

// NotifySynced publishes the single storage update that follows a sync batch.
func (s *Store) NotifySynced() {
	s.events.Publish(events.StorageChanged(events.OriginSync))
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LibraryCounts summarises the store contents.
type LibraryCounts struct {
	Albums     int `json:"albums"`
	Songs      int `json:"songs"`
	Playlists  int `json:"playlists"`
	Tombstones int `json:"tombstones"`
}

// Counts returns the number of records in each table.
func (s *Store) Counts(ctx context.Context) (LibraryCounts, error) {
	var c LibraryCounts
	query := `
		SELECT
			(SELECT COUNT(*) FROM albums),
			(SELECT COUNT(*) FROM songs),
			(SELECT COUNT(*) FROM playlists),
			(SELECT COUNT(*) FROM tombstones)
	`
	if err := s.db.QueryRowContext(ctx, query).Scan(&c.Albums, &c.Songs, &c.Playlists, &c.Tombstones); err != nil {
		return c, fmt.Errorf("failed to count library: %w", err)
	}
	return c, nil
}

// ClearAll removes every record from every table.
func (s *Store) ClearAll(ctx context.Context) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"albums", "songs", "playlists", "settings", "tombstones"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(Notify)
	return nil
}

// AddAlbum saves a new album with its songs as one user-visible change and counts it in the stats.
//
// Songs inherit the album id, title, artist and cover art when they do not carry their own.
func (s *Store) AddAlbum(ctx context.Context, album models.Album, songs []models.Song) (models.Album, []models.Song, error) {
	now := s.now()
	if album.ID == "" {
		album.ID = shared.PrefixedID(string(models.KindAlbum))
	}
	album.Stamp(now)
	if err := album.Validate(); err != nil {
		return album, nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	playable := 0
	for i := range songs {
		song := &songs[i]
		if song.ID == "" {
			song.ID = shared.PrefixedID(string(models.KindSong))
		}
		song.AlbumID = album.ID
		song.Album = album.Title
		if song.Artist == "" {
			song.Artist = album.Artist
		}
		if song.CoverArt == "" {
			song.CoverArt = album.CoverArt
		}
		if song.Position == 0 {
			song.Position = i + 1
		}
		song.HasURL = song.URL != ""
		if song.HasURL {
			playable++
		}
		song.Stamp(now)
		if err := song.Validate(); err != nil {
			return album, nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertAlbum(ctx, tx, album); err != nil {
			return err
		}
		for _, song := range songs {
			if err := upsertSong(ctx, tx, song); err != nil {
				return err
			}
		}

		stats, err := loadStats(ctx, tx)
		if err != nil {
			return err
		}
		if stats == nil {
			stats = models.NewStats(s.clock())
		}
		stats.RecordAlbumAdded(s.clock(), playable)
		return saveSetting(ctx, tx, models.StatsSettingsKey, stats, now)
	})
	if err != nil {
		return album, nil, err
	}

	s.notify(Notify)
	return album, songs, nil
}

// RecordPlay counts a play of songID in the listening statistics.
func (s *Store) RecordPlay(ctx context.Context, songID string) (*models.Stats, error) {
	var stats *models.Stats
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		song, err := getSong(ctx, tx, songID)
		if err != nil {
			return err
		}

		stats, err = loadStats(ctx, tx)
		if err != nil {
			return err
		}
		if stats == nil {
			stats = models.NewStats(s.clock())
		}
		stats.RecordPlay(song, s.clock())
		return saveSetting(ctx, tx, models.StatsSettingsKey, stats, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.notify(Notify)
	return stats, nil
}

// queryAll runs query and scans every row with scan.
func queryAll[T any](ctx context.Context, q querier, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// notFound wraps sql.ErrNoRows as [shared.ErrNotFound].
func notFound(err error, kind models.Kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, kind, id)
	}
	return fmt.Errorf("failed to get %s: %w", kind, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
