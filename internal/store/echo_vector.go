package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/kittclouds/m3a/internal/kernel"
	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// UpsertVector inserts or replaces the (message_id, model) dense-vector row.
func (s *Store) UpsertVector(ctx context.Context, e L3VectorEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO l3_vectors (id, chat_id, message_id, content_hash, embedding, model, dimensions, boost_factor, is_muted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id, model) DO UPDATE SET
			content_hash = excluded.content_hash,
			embedding = excluded.embedding,
			dimensions = excluded.dimensions,
			boost_factor = excluded.boost_factor
	`, e.ID, e.ChatID, e.MessageID, e.ContentHash, kernel.Serialize(e.Embedding), e.Model,
		e.Dimensions, e.BoostFactor, boolToInt(e.IsMuted), e.CreatedAt.UnixMilli())
	if err != nil {
		return m3aerrors.StorageFailure("upsertVector", err)
	}
	return nil
}

// AllVectors returns every unmuted vector row for chatID and model. The
// caller (internal/echo) is responsible for the brute-force similarity scan
// in a stable order; this method itself does not rank anything.
func (s *Store) AllVectors(ctx context.Context, chatID, model string) ([]L3VectorEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, message_id, content_hash, embedding, model, dimensions, boost_factor, is_muted, created_at
		FROM l3_vectors
		WHERE chat_id = ? AND model = ? AND is_muted = 0
		ORDER BY created_at ASC
	`, chatID, model)
	if err != nil {
		return nil, m3aerrors.StorageFailure("allVectors", err)
	}
	defer rows.Close()

	var out []L3VectorEntry
	for rows.Next() {
		var e L3VectorEntry
		var blob []byte
		var muted int
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.ChatID, &e.MessageID, &e.ContentHash, &blob, &e.Model,
			&e.Dimensions, &e.BoostFactor, &muted, &createdAt); err != nil {
			return nil, m3aerrors.StorageFailure("scanVector", err)
		}
		vec, err := kernel.Deserialize(blob)
		if err != nil {
			return nil, err
		}
		e.Embedding = vec
		e.IsMuted = intToBool(muted)
		e.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, m3aerrors.StorageFailure("allVectors", err)
	}
	return out, nil
}

// GetCachedEmbedding reads a previously computed embedding by content hash
// and model, bumping its last_accessed_at, or returns (nil, false, nil) on
// a miss.
func (s *Store) GetCachedEmbedding(ctx context.Context, contentHash, model string) ([]float32, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT embedding FROM embedding_cache WHERE content_hash = ? AND model = ?
	`, contentHash, model).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, m3aerrors.StorageFailure("getCachedEmbedding", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE embedding_cache SET last_accessed_at = ? WHERE content_hash = ? AND model = ?
	`, time.Now().UnixMilli(), contentHash, model); err != nil {
		return nil, false, m3aerrors.StorageFailure("touchEmbeddingCache", err)
	}

	vec, err := kernel.Deserialize(blob)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// PutCachedEmbedding stores (or refreshes) a computed embedding, keyed by
// content hash and model.
func (s *Store) PutCachedEmbedding(ctx context.Context, e EmbeddingCacheEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (content_hash, model, embedding, dimensions, created_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash, model) DO UPDATE SET last_accessed_at = excluded.last_accessed_at
	`, e.ContentHash, e.Model, kernel.Serialize(e.Embedding), e.Dimensions,
		e.CreatedAt.UnixMilli(), e.LastAccessedAt.UnixMilli())
	if err != nil {
		return m3aerrors.StorageFailure("putCachedEmbedding", err)
	}
	return nil
}
