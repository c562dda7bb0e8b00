package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// InsertRiverEntry appends a new L1 river row.
func (s *Store) InsertRiverEntry(ctx context.Context, e L1RiverEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO l1_river (id, chat_id, message_id, content, token_count, timestamp, evicted_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`, e.ID, e.ChatID, e.MessageID, e.Content, e.TokenCount, e.Timestamp.UnixMilli())
	if err != nil {
		return m3aerrors.StorageFailure("insertRiverEntry", err)
	}
	return nil
}

// LiveRiverEntries returns every non-evicted row for chatID ordered oldest
// first, which is the order the eviction and token-budget logic expects.
func (s *Store) LiveRiverEntries(ctx context.Context, chatID string) ([]L1RiverEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, message_id, content, token_count, timestamp, evicted_at
		FROM l1_river
		WHERE chat_id = ? AND evicted_at IS NULL
		ORDER BY timestamp ASC
	`, chatID)
	if err != nil {
		return nil, m3aerrors.StorageFailure("liveRiverEntries", err)
	}
	defer rows.Close()

	var out []L1RiverEntry
	for rows.Next() {
		var e L1RiverEntry
		var ts int64
		var evictedAt sql.NullInt64
		if err := rows.Scan(&e.ID, &e.ChatID, &e.MessageID, &e.Content, &e.TokenCount, &ts, &evictedAt); err != nil {
			return nil, m3aerrors.StorageFailure("scanRiverEntry", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		if evictedAt.Valid {
			t := time.UnixMilli(evictedAt.Int64)
			e.EvictedAt = &t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, m3aerrors.StorageFailure("liveRiverEntries", err)
	}
	return out, nil
}

// RecentRiverEntries returns the most recent n live entries, newest first.
func (s *Store) RecentRiverEntries(ctx context.Context, chatID string, limit int) ([]L1RiverEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, message_id, content, token_count, timestamp, evicted_at
		FROM l1_river
		WHERE chat_id = ? AND evicted_at IS NULL
		ORDER BY timestamp DESC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, m3aerrors.StorageFailure("recentRiverEntries", err)
	}
	defer rows.Close()

	var out []L1RiverEntry
	for rows.Next() {
		var e L1RiverEntry
		var ts int64
		var evictedAt sql.NullInt64
		if err := rows.Scan(&e.ID, &e.ChatID, &e.MessageID, &e.Content, &e.TokenCount, &ts, &evictedAt); err != nil {
			return nil, m3aerrors.StorageFailure("scanRiverEntry", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		if evictedAt.Valid {
			t := time.UnixMilli(evictedAt.Int64)
			e.EvictedAt = &t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, m3aerrors.StorageFailure("recentRiverEntries", err)
	}
	return out, nil
}

// RiverTokenTotal sums token_count across every live entry for chatID.
func (s *Store) RiverTokenTotal(ctx context.Context, chatID string) (uint32, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(token_count) FROM l1_river WHERE chat_id = ? AND evicted_at IS NULL
	`, chatID).Scan(&total)
	if err != nil {
		return 0, m3aerrors.StorageFailure("riverTokenTotal", err)
	}
	return uint32(total.Int64), nil
}

// EvictRiverEntries logically tombstones the given ids at evictedAt,
// leaving the rows in place for audit/history purposes.
func (s *Store) EvictRiverEntries(ctx context.Context, ids []string, evictedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE l1_river SET evicted_at = ? WHERE id = ?`)
		if err != nil {
			return m3aerrors.StorageFailure("evictRiverEntries", err)
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, evictedAt.UnixMilli(), id); err != nil {
				return m3aerrors.StorageFailure("evictRiverEntries", err)
			}
		}
		return nil
	})
}
