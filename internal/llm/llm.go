// Package llm defines the capability interfaces the write pipeline injects
// for embedding and text-classification calls (section 6: External
// Interfaces), plus the response parsers and deterministic fallbacks that
// keep those two call sites from ever failing outright.
package llm

import "context"

// EmbeddingProvider embeds a batch of texts under a fixed model. Output
// vectors share one dimensionality per model; the provider is opaque and
// may cache internally or call out over HTTP.
type EmbeddingProvider interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// Classifier completes a prompt pair and returns raw text. The pipeline is
// the one that interprets the shape of that text — as an affect
// classification or an entity/relation extraction — not the classifier
// itself.
type Classifier interface {
	Complete(ctx context.Context, userPrompt, systemPrompt string) (string, error)
}
