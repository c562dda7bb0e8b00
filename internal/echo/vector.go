// Package echo implements L3 Echo: the three redundant retrieval indices —
// dense vector (4.5.1), lexical (4.5.2), and the entity-relation graph
// (4.5.3).
package echo

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/kernel"
	"github.com/kittclouds/m3a/internal/store"
)

// VectorHit is one scored dense-vector search result.
type VectorHit struct {
	MessageID string
	Content   string
	Score     float64
}

// AddVector stores hash(content), the serialized embedding, and dimensions
// for (chatID, messageID, model).
func (e *Echo) AddVector(ctx context.Context, chatID, messageID, content string, embedding []float32, model string) (store.L3VectorEntry, error) {
	entry := store.L3VectorEntry{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		MessageID:   messageID,
		ContentHash: kernel.Hash(content),
		Embedding:   embedding,
		Model:       model,
		Dimensions:  len(embedding),
		BoostFactor: 1.0,
		CreatedAt:   time.Now(),
	}
	if err := e.store.UpsertVector(ctx, entry); err != nil {
		return store.L3VectorEntry{}, err
	}
	return entry, nil
}

// SearchVector brute-force scans every live candidate of chatID under
// model, scoring cosine(query, candidate)·boostFactor, and returns the top
// topK descending. A candidate whose dimensions mismatch the query is
// skipped rather than failing the whole search.
func (e *Echo) SearchVector(ctx context.Context, chatID, model string, query []float32, topK int) ([]VectorHit, error) {
	candidates, err := e.store.AllVectors(ctx, chatID, model)
	if err != nil {
		return nil, err
	}

	hits := make([]VectorHit, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) != len(query) {
			continue
		}
		cos, err := kernel.Cosine(query, c.Embedding)
		if err != nil {
			continue
		}
		hits = append(hits, VectorHit{
			MessageID: c.MessageID,
			Content:   "",
			Score:     float64(cos) * c.BoostFactor,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// CachedEmbedding reads the embedding cache, a read-through layer shared by
// every chat since it is keyed only by content hash and model.
func (e *Echo) CachedEmbedding(ctx context.Context, content, model string) ([]float32, bool, error) {
	return e.store.GetCachedEmbedding(ctx, kernel.Hash(content), model)
}

// CacheEmbedding idempotently stores a freshly computed embedding.
func (e *Echo) CacheEmbedding(ctx context.Context, content, model string, embedding []float32) error {
	now := time.Now()
	return e.store.PutCachedEmbedding(ctx, store.EmbeddingCacheEntry{
		ContentHash:    kernel.Hash(content),
		Embedding:      embedding,
		Model:          model,
		Dimensions:     len(embedding),
		CreatedAt:      now,
		LastAccessedAt: now,
	})
}
