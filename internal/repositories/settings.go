package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/vibesync/internal/models"
)

// SettingsRepository stores JSON values by key.
//
// Settings writes do not publish storage updates; they ride along with the next sync.
type SettingsRepository struct {
	store *Store
}

// Get decodes the value stored under key into dst and reports whether it existed.
func (r *SettingsRepository) Get(ctx context.Context, key string, dst any) (bool, error) {
	return getSetting(ctx, r.store.db, key, dst)
}

// Set stores value under key.
func (r *SettingsRepository) Set(ctx context.Context, key string, value any) error {
	return saveSetting(ctx, r.store.db, key, value, r.store.now())
}

// Delete removes key.
func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// All returns the full settings map with raw JSON values.
func (r *SettingsRepository) All(ctx context.Context) (models.Settings, error) {
	type pair struct {
		key   string
		value string
	}
	scan := func(row scanner) (pair, error) {
		var p pair
		err := row.Scan(&p.key, &p.value)
		return p, err
	}

	pairs, err := queryAll(ctx, r.store.db, scan, "SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	settings := make(models.Settings, len(pairs))
	for _, p := range pairs {
		settings[p.key] = json.RawMessage(p.value)
	}
	return settings, nil
}

// Stats returns the listening statistics blob, or nil when none was recorded.
func (r *SettingsRepository) Stats(ctx context.Context) (*models.Stats, error) {
	return loadStats(ctx, r.store.db)
}

// SaveStats replaces the listening statistics blob.
func (r *SettingsRepository) SaveStats(ctx context.Context, stats *models.Stats) error {
	if stats == nil {
		return nil
	}
	return r.Set(ctx, models.StatsSettingsKey, stats)
}

// LastSyncDate returns the time of the last successful sync in epoch milliseconds, or 0.
func (r *SettingsRepository) LastSyncDate(ctx context.Context) (int64, error) {
	var ms int64
	if _, err := r.Get(ctx, models.LastSyncDateKey, &ms); err != nil {
		return 0, err
	}
	return ms, nil
}

// SetLastSyncDate records a successful sync.
func (r *SettingsRepository) SetLastSyncDate(ctx context.Context, ms int64) error {
	return r.Set(ctx, models.LastSyncDateKey, ms)
}

func getSetting(ctx context.Context, q querier, key string, dst any) (bool, error) {
	var raw string
	err := q.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return true, nil
}

func saveSetting(ctx context.Context, q querier, key string, value any, now int64) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, key, string(encoded), now); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

func loadStats(ctx context.Context, q querier) (*models.Stats, error) {
	var stats models.Stats
	ok, err := getSetting(ctx, q, models.StatsSettingsKey, &stats)
	if err != nil || !ok {
		return nil, err
	}
	return &stats, nil
}
