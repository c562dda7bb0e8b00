package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// InsertAffectEntry appends a new L2 affect row.
func (s *Store) InsertAffectEntry(ctx context.Context, e L2AffectEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO l2_affect
			(id, chat_id, message_id, category, intensity, reasoning, decay_factor, is_muted, created_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.ChatID, e.MessageID, string(e.Category), e.Intensity, e.Reasoning,
		e.DecayFactor, boolToInt(e.IsMuted), e.CreatedAt.UnixMilli(), e.LastAccessedAt.UnixMilli())
	if err != nil {
		return m3aerrors.StorageFailure("insertAffectEntry", err)
	}
	return nil
}

// AffectEntries returns the L2 rows for chatID, newest first, and bumps
// last_accessed_at on each returned row. Muted rows are included only when
// includeMuted is true.
func (s *Store) AffectEntries(ctx context.Context, chatID string, includeMuted bool) ([]L2AffectEntry, error) {
	query := `
		SELECT id, chat_id, message_id, category, intensity, reasoning, decay_factor, is_muted, created_at, last_accessed_at
		FROM l2_affect WHERE chat_id = ?`
	if !includeMuted {
		query += ` AND is_muted = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, m3aerrors.StorageFailure("affectEntries", err)
	}
	defer rows.Close()

	var out []L2AffectEntry
	var ids []string
	for rows.Next() {
		var e L2AffectEntry
		var category string
		var muted int
		var createdAt, lastAccessedAt int64
		if err := rows.Scan(&e.ID, &e.ChatID, &e.MessageID, &category, &e.Intensity, &e.Reasoning,
			&e.DecayFactor, &muted, &createdAt, &lastAccessedAt); err != nil {
			return nil, m3aerrors.StorageFailure("scanAffectEntry", err)
		}
		e.Category = AffectCategory(category)
		e.IsMuted = intToBool(muted)
		e.CreatedAt = time.UnixMilli(createdAt)
		e.LastAccessedAt = time.UnixMilli(lastAccessedAt)
		out = append(out, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, m3aerrors.StorageFailure("affectEntries", err)
	}

	if len(ids) > 0 {
		if err := s.touchAffectAccess(ctx, ids, time.Now()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) touchAffectAccess(ctx context.Context, ids []string, at time.Time) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE l2_affect SET last_accessed_at = ? WHERE id = ?`)
		if err != nil {
			return m3aerrors.StorageFailure("touchAffectAccess", err)
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, at.UnixMilli(), id); err != nil {
				return m3aerrors.StorageFailure("touchAffectAccess", err)
			}
		}
		return nil
	})
}

// DecayAffectEntries multiplies decay_factor by rate for every row of
// chatID, per the I4 invariant.
func (s *Store) DecayAffectEntries(ctx context.Context, chatID string, rate float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE l2_affect SET decay_factor = decay_factor * ? WHERE chat_id = ?
	`, rate, chatID)
	if err != nil {
		return m3aerrors.StorageFailure("decayAffectEntries", err)
	}
	return nil
}
