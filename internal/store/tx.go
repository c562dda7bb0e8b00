package store

import (
	"context"
	"database/sql"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic, which is re-raised after rollback).
// River eviction, affect access bumps, config saves and salience muting
// use it so their batched writes apply all-or-nothing (I10). The lexical,
// entity and companion node upserts issue their statements without it.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return m3aerrors.StorageFailure("beginTx", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return m3aerrors.StorageFailure("rollback", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return m3aerrors.StorageFailure("commit", err)
	}
	return nil
}
