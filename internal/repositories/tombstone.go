package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/vibesync/internal/models"
)

// TombstoneRepository persists the deletion ledger.
type TombstoneRepository struct {
	store *Store
}

// GetAll returns every tombstone ordered by id.
func (r *TombstoneRepository) GetAll(ctx context.Context) ([]models.Tombstone, error) {
	tombstones, err := queryAll(ctx, r.store.db, scanTombstone, "SELECT id, type, updated_at FROM tombstones ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list tombstones: %w", err)
	}
	return tombstones, nil
}

// Put records a tombstone, keeping the later timestamp when one already exists for the id.
func (r *TombstoneRepository) Put(ctx context.Context, t models.Tombstone) error {
	return putTombstone(ctx, r.store.db, t)
}

// Merge upserts tombstones and then drops every entry stamped at or before cutoff.
//
// Entries already in the ledger are never removed for being absent from tombstones, so a
// deletion recorded while a sync is running survives it.
func (r *TombstoneRepository) Merge(ctx context.Context, tombstones []models.Tombstone, cutoff int64) error {
	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		for _, t := range tombstones {
			if err := putTombstone(ctx, tx, t); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tombstones WHERE updated_at <= ?", cutoff); err != nil {
			return fmt.Errorf("failed to prune tombstones: %w", err)
		}
		return nil
	})
}

func putTombstone(ctx context.Context, q querier, t models.Tombstone) error {
	if !t.Type.Valid() {
		return fmt.Errorf("invalid tombstone type %q for %s", t.Type, t.ID)
	}

	query := `
		INSERT INTO tombstones (id, type, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			updated_at = MAX(tombstones.updated_at, excluded.updated_at)
	`
	if _, err := q.ExecContext(ctx, query, t.ID, string(t.Type), t.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save tombstone %s: %w", t.ID, err)
	}
	return nil
}

func scanTombstone(row scanner) (models.Tombstone, error) {
	var (
		t        models.Tombstone
		typeName string
	)
	err := row.Scan(&t.ID, &typeName, &t.UpdatedAt)
	t.Type = models.Kind(typeName)
	return t, err
}
