package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migration is one ordered, versioned unit of schema change.
type migration struct {
	version int
	name    string
	up      string
}

// loadMigrations discovers the embedded *.sql files and orders them by the
// integer version prefix in their filename (NNNN_name.sql).
func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	out := make([]migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(e.Name(), "_", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("migration filename %q missing version prefix", e.Name())
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("migration filename %q has non-integer version: %w", e.Name(), err)
		}
		body, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", e.Name(), err)
		}
		name := strings.TrimSuffix(strings.TrimSuffix(parts[1], ".sql"), ".SQL")
		out = append(out, migration{version: version, name: name, up: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// migrate runs every pending migration (by version, ascending) atomically,
// one transaction per migration, recording each in _migrations. A failure
// aborts the whole batch and surfaces the failing version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return m3aerrors.StorageFailure("createMigrationsTable", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return m3aerrors.StorageFailure("listAppliedMigrations", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return m3aerrors.StorageFailure("scanAppliedMigration", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return m3aerrors.StorageFailure("listAppliedMigrations", err)
	}
	rows.Close()

	all, err := loadMigrations()
	if err != nil {
		return m3aerrors.MigrationFailure(0, err)
	}

	for _, m := range all {
		if applied[m.version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return m3aerrors.MigrationFailure(m.version, err)
		}

		if _, err := tx.ExecContext(ctx, m.up); err != nil {
			tx.Rollback()
			return m3aerrors.MigrationFailure(m.version, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO _migrations (version, name, applied_at) VALUES (?, ?, ?)
		`, m.version, m.name, time.Now().UnixMilli()); err != nil {
			tx.Rollback()
			return m3aerrors.MigrationFailure(m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return m3aerrors.MigrationFailure(m.version, err)
		}
	}

	return nil
}
