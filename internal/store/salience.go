package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// UpsertSalience inserts or replaces the single row per message_id.
func (s *Store) UpsertSalience(ctx context.Context, e L4SalienceEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO l4_salience
			(id, chat_id, message_id, content, salience_score, prediction_error, user_pinned, retention_priority, is_muted, created_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			salience_score = excluded.salience_score,
			prediction_error = excluded.prediction_error,
			retention_priority = excluded.retention_priority
	`, e.ID, e.ChatID, e.MessageID, e.Content, e.SalienceScore, e.PredictionError,
		boolToInt(e.UserPinned), e.RetentionPriority, boolToInt(e.IsMuted),
		e.CreatedAt.UnixMilli(), e.LastAccessedAt.UnixMilli())
	if err != nil {
		return m3aerrors.StorageFailure("upsertSalience", err)
	}
	return nil
}

// SetPinned flips user_pinned for messageID (I5: pinned rows are immune to
// eviction and score decay regardless of salience_score).
func (s *Store) SetPinned(ctx context.Context, messageID string, pinned bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE l4_salience SET user_pinned = ? WHERE message_id = ?
	`, boolToInt(pinned), messageID)
	if err != nil {
		return m3aerrors.StorageFailure("setPinned", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return m3aerrors.StorageFailure("setPinned", err)
	}
	if n == 0 {
		return m3aerrors.NotFound("salience entry not found").WithContext("messageId", messageID)
	}
	return nil
}

// SalienceEntries returns unmuted L4 rows for chatID, optionally restricted
// to pinned-only, pinned rows first, then by salience_score descending.
func (s *Store) SalienceEntries(ctx context.Context, chatID string, pinnedOnly bool, limit int) ([]L4SalienceEntry, error) {
	query := `
		SELECT id, chat_id, message_id, content, salience_score, prediction_error, user_pinned, retention_priority, is_muted, created_at, last_accessed_at
		FROM l4_salience WHERE chat_id = ? AND is_muted = 0`
	if pinnedOnly {
		query += ` AND user_pinned = 1`
	}
	query += ` ORDER BY user_pinned DESC, salience_score DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, m3aerrors.StorageFailure("salienceEntries", err)
	}
	defer rows.Close()

	var out []L4SalienceEntry
	for rows.Next() {
		var e L4SalienceEntry
		var predErr sql.NullFloat64
		var pinned, muted int
		var createdAt, lastAccessedAt int64
		if err := rows.Scan(&e.ID, &e.ChatID, &e.MessageID, &e.Content, &e.SalienceScore, &predErr,
			&pinned, &e.RetentionPriority, &muted, &createdAt, &lastAccessedAt); err != nil {
			return nil, m3aerrors.StorageFailure("scanSalience", err)
		}
		if predErr.Valid {
			e.PredictionError = &predErr.Float64
		}
		e.UserPinned = intToBool(pinned)
		e.IsMuted = intToBool(muted)
		e.CreatedAt = time.UnixMilli(createdAt)
		e.LastAccessedAt = time.UnixMilli(lastAccessedAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, m3aerrors.StorageFailure("salienceEntries", err)
	}
	return out, nil
}

// EvictableSalienceEntries returns unpinned, unmuted rows below threshold,
// lowest score first. No consolidation step calls it.
func (s *Store) EvictableSalienceEntries(ctx context.Context, chatID string, threshold float64) ([]L4SalienceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, message_id, content, salience_score, prediction_error, user_pinned, retention_priority, is_muted, created_at, last_accessed_at
		FROM l4_salience
		WHERE chat_id = ? AND user_pinned = 0 AND is_muted = 0 AND salience_score < ?
		ORDER BY salience_score ASC
	`, chatID, threshold)
	if err != nil {
		return nil, m3aerrors.StorageFailure("evictableSalienceEntries", err)
	}
	defer rows.Close()

	var out []L4SalienceEntry
	for rows.Next() {
		var e L4SalienceEntry
		var predErr sql.NullFloat64
		var pinned, muted int
		var createdAt, lastAccessedAt int64
		if err := rows.Scan(&e.ID, &e.ChatID, &e.MessageID, &e.Content, &e.SalienceScore, &predErr,
			&pinned, &e.RetentionPriority, &muted, &createdAt, &lastAccessedAt); err != nil {
			return nil, m3aerrors.StorageFailure("scanSalience", err)
		}
		if predErr.Valid {
			e.PredictionError = &predErr.Float64
		}
		e.UserPinned = intToBool(pinned)
		e.IsMuted = intToBool(muted)
		e.CreatedAt = time.UnixMilli(createdAt)
		e.LastAccessedAt = time.UnixMilli(lastAccessedAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, m3aerrors.StorageFailure("evictableSalienceEntries", err)
	}
	return out, nil
}

// MuteSalienceEntries marks the given ids muted in one transaction. No
// consolidation step calls it.
func (s *Store) MuteSalienceEntries(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE l4_salience SET is_muted = 1 WHERE id = ?`)
		if err != nil {
			return m3aerrors.StorageFailure("muteSalienceEntries", err)
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return m3aerrors.StorageFailure("muteSalienceEntries", err)
			}
		}
		return nil
	})
}
