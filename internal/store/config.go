package store

import (
	"context"
	"database/sql"

	"github.com/kittclouds/m3a/internal/config"
	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// LoadConfig reads every memory_config row and folds it into a Snapshot,
// defaulting any key that has never been set.
func (s *Store) LoadConfig(ctx context.Context) (config.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM memory_config`)
	if err != nil {
		return config.Snapshot{}, m3aerrors.StorageFailure("loadConfig", err)
	}
	defer rows.Close()

	raw := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return config.Snapshot{}, m3aerrors.StorageFailure("scanConfig", err)
		}
		raw[k] = v
	}
	if err := rows.Err(); err != nil {
		return config.Snapshot{}, m3aerrors.StorageFailure("loadConfig", err)
	}
	return config.FromMap(raw), nil
}

// SaveConfig persists every key in the snapshot, overwriting prior values.
func (s *Store) SaveConfig(ctx context.Context, snap config.Snapshot) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO memory_config (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`)
		if err != nil {
			return m3aerrors.StorageFailure("saveConfig", err)
		}
		defer stmt.Close()
		for k, v := range snap.ToMap() {
			if _, err := stmt.ExecContext(ctx, k, v); err != nil {
				return m3aerrors.StorageFailure("saveConfig", err)
			}
		}
		return nil
	})
}

// PatchConfig persists a single key/value pair without touching the rest.
func (s *Store) PatchConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return m3aerrors.StorageFailure("patchConfig", err)
	}
	return nil
}
