// Package store provides the SQLite-backed persistence layer for M3A.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"

	"github.com/kittclouds/m3a/internal/logging"
	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// Pragmas configures the connection-level SQLite settings applied on open.
// BusyTimeoutMS bounds how long a writer waits on SQLITE_BUSY before
// surfacing a storage failure; the rest of the pragmas are fixed.
type Pragmas struct {
	BusyTimeoutMS int
}

// DefaultPragmas returns the tunable pragmas with a 5000 ms busy timeout.
// WAL journaling, foreign keys and NORMAL synchronous are applied by Open
// regardless of this value.
func DefaultPragmas() Pragmas {
	return Pragmas{BusyTimeoutMS: 5000}
}

// Store wraps the shared *sql.DB handle and guards schema migration with a
// one-time setup. Layer packages (river, affect, echo, salience, companion)
// hold a *Store and issue their own prepared statements against it.
type Store struct {
	db  *sql.DB
	log *logging.Logger
	mu  sync.Mutex
}

// Open creates (or attaches to) a SQLite database at dsn, applies the
// required pragmas, and runs any pending migrations. Use ":memory:" for an
// ephemeral store in tests.
func Open(ctx context.Context, dsn string, pragmas Pragmas, log *logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, m3aerrors.StorageFailure("open", err)
	}

	// SQLite permits only one writer; a single pooled connection avoids
	// SQLITE_BUSY from the driver itself racing its own pool.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", pragmas.BusyTimeoutMS),
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, m3aerrors.StorageFailure(pragma, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if log == nil {
		log = logging.Noop()
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for layer packages that need to build their own
// prepared statements or participate in a shared transaction.
func (s *Store) DB() *sql.DB {
	return s.db
}
