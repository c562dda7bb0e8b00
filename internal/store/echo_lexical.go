package store

import (
	"context"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// LexicalHit is one FTS5 match, carrying its raw BM25 rank (more negative is
// a better match, per SQLite's convention) alongside the boost metadata.
type LexicalHit struct {
	ChatID      string
	MessageID   string
	Content     string
	BM25        float64
	BoostFactor float64
}

// IndexLexical indexes content into the FTS5 table and upserts its metadata
// sibling row. FTS5 has no native UPSERT for content, so a prior delete
// keeps re-indexing idempotent.
func (s *Store) IndexLexical(ctx context.Context, chatID, messageID, content string, boostFactor float64) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM l3_lexical_fts WHERE chat_id = ? AND message_id = ?
	`, chatID, messageID); err != nil {
		return m3aerrors.StorageFailure("indexLexical.delete", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO l3_lexical_fts (chat_id, message_id, content) VALUES (?, ?, ?)
	`, chatID, messageID, content); err != nil {
		return m3aerrors.StorageFailure("indexLexical.insert", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO l3_lexical_meta (chat_id, message_id, boost_factor, is_muted)
		VALUES (?, ?, ?, 0)
		ON CONFLICT(chat_id, message_id) DO UPDATE SET boost_factor = excluded.boost_factor
	`, chatID, messageID, boostFactor); err != nil {
		return m3aerrors.StorageFailure("indexLexical.meta", err)
	}
	return nil
}

// SearchLexical runs an FTS5 MATCH query scoped to chatID, returning raw
// bm25 scores and boost metadata; the caller (internal/echo) applies the
// bm25*boostFactor ranking contract.
func (s *Store) SearchLexical(ctx context.Context, chatID, query string, limit int) ([]LexicalHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.chat_id, f.message_id, f.content, bm25(l3_lexical_fts), COALESCE(m.boost_factor, 1.0)
		FROM l3_lexical_fts f
		LEFT JOIN l3_lexical_meta m ON m.chat_id = f.chat_id AND m.message_id = f.message_id
		WHERE f.chat_id = ? AND l3_lexical_fts MATCH ? AND COALESCE(m.is_muted, 0) = 0
		ORDER BY bm25(l3_lexical_fts)
		LIMIT ?
	`, chatID, query, limit)
	if err != nil {
		return nil, m3aerrors.StorageFailure("searchLexical", err)
	}
	defer rows.Close()

	var out []LexicalHit
	for rows.Next() {
		var h LexicalHit
		if err := rows.Scan(&h.ChatID, &h.MessageID, &h.Content, &h.BM25, &h.BoostFactor); err != nil {
			return nil, m3aerrors.StorageFailure("scanLexicalHit", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, m3aerrors.StorageFailure("searchLexical", err)
	}
	return out, nil
}
