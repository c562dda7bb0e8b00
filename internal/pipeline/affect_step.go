package pipeline

import (
	"context"

	"github.com/kittclouds/m3a/internal/config"
	"github.com/kittclouds/m3a/internal/llm"
)

// writeAffect classifies content and persists it if intensity clears the
// configured threshold. With no Classifier injected the layer is skipped.
// When the Classifier's completion errors or does not parse, the
// deterministic keyword classifier is used instead. The layer is also
// skipped when intensity is below the threshold, and fails only on a
// storage error.
func (p *Pipeline) writeAffect(ctx context.Context, chatID, messageID, content string, cfg config.Snapshot, opts Options) LayerStatus {
	classification, ok := p.classifyAffect(ctx, content, opts)
	if !ok {
		return LayerStatus{Skipped: true, Reason: "no classifier available"}
	}

	if classification.Intensity < cfg.L2AffectThreshold {
		return LayerStatus{Skipped: true, Reason: "below affect threshold"}
	}

	entry, err := p.affect.Add(ctx, chatID, messageID, classification.Category, classification.Intensity, classification.Reasoning)
	if err != nil {
		return LayerStatus{Success: false, Reason: err.Error()}
	}
	return LayerStatus{Success: true, ID: entry.ID}
}

func (p *Pipeline) classifyAffect(ctx context.Context, content string, opts Options) (llm.AffectClassification, bool) {
	if opts.Classifier == nil {
		return llm.AffectClassification{}, false
	}

	system, user := defaultAffectPrompt(content)
	if opts.AffectPrompter != nil {
		system, user = opts.AffectPrompter(content)
	}

	raw, err := opts.Classifier.Complete(ctx, user, system)
	if err != nil {
		return llm.KeywordClassify(content), true
	}

	parsed, ok := llm.ParseAffect(raw)
	if !ok {
		return llm.KeywordClassify(content), true
	}
	return parsed, true
}

func defaultAffectPrompt(content string) (string, string) {
	system := "Classify the user's emotional affect. Respond with JSON: " +
		`{"category": one of FRUSTRATED|CONFUSED|CURIOUS|SATISFIED|URGENT|REFLECTIVE, "intensity": 0-1, "reasoning": string}.`
	return system, content
}
