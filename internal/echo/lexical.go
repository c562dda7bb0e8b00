package echo

import (
	"context"
	"math"
	"sort"
)

// LexicalHit is one scored lexical search result; Score is |bm25|·boost.
type LexicalHit struct {
	MessageID string
	Content   string
	Score     float64
}

// AddLexical indexes content into the FTS index and upserts its metadata.
func (e *Echo) AddLexical(ctx context.Context, chatID, messageID, content string) error {
	return e.store.IndexLexical(ctx, chatID, messageID, content, 1.0)
}

// SearchLexical runs an FTS5 MATCH query and returns hits sorted by
// |bm25|·boostFactor ascending. SQLite's bm25 is more negative for a better
// match, so this order puts the weakest of the returned matches first; the
// store query itself keeps the topK best matches by bm25.
func (e *Echo) SearchLexical(ctx context.Context, chatID, query string, topK int) ([]LexicalHit, error) {
	rows, err := e.store.SearchLexical(ctx, chatID, query, topK)
	if err != nil {
		return nil, err
	}

	hits := make([]LexicalHit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, LexicalHit{
			MessageID: r.MessageID,
			Content:   r.Content,
			Score:     math.Abs(r.BM25) * r.BoostFactor,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score < hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
