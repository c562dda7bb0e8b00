package pipeline

import "context"

// writeVector is cache-first: hash(content)+model is looked up in the
// embedding cache before calling the provider. A cache hit or a successful
// provider call both persist to L3 vectors; a missing provider skips.
func (p *Pipeline) writeVector(ctx context.Context, chatID, messageID, content string, opts Options) LayerStatus {
	if opts.EmbeddingProvider == nil {
		return LayerStatus{Skipped: true, Reason: "no embedding provider available"}
	}
	model := opts.EmbeddingModel
	if model == "" {
		return LayerStatus{Skipped: true, Reason: "no embedding model configured"}
	}

	cached, hit, err := p.echo.CachedEmbedding(ctx, content, model)
	if err != nil {
		return LayerStatus{Success: false, Reason: err.Error()}
	}

	embedding := cached
	if !hit {
		vectors, err := opts.EmbeddingProvider.Embed(ctx, model, []string{content})
		if err != nil || len(vectors) == 0 {
			reason := "embedding provider returned no vectors"
			if err != nil {
				reason = err.Error()
			}
			return LayerStatus{Success: false, Reason: reason}
		}
		embedding = vectors[0]
		if err := p.echo.CacheEmbedding(ctx, content, model, embedding); err != nil {
			return LayerStatus{Success: false, Reason: err.Error()}
		}
	}

	entry, err := p.echo.AddVector(ctx, chatID, messageID, content, embedding, model)
	if err != nil {
		return LayerStatus{Success: false, Reason: err.Error()}
	}
	return LayerStatus{Success: true, ID: entry.ID, Cached: hit}
}
