// Package pipeline implements the write pipeline of section 4.8: a
// fan-out of one ingested message across L1-L5 under partial-failure
// semantics. No single layer's failure aborts another's.
package pipeline

import (
	"context"

	"github.com/kittclouds/m3a/internal/affect"
	"github.com/kittclouds/m3a/internal/companion"
	"github.com/kittclouds/m3a/internal/config"
	"github.com/kittclouds/m3a/internal/consolidator"
	"github.com/kittclouds/m3a/internal/echo"
	"github.com/kittclouds/m3a/internal/llm"
	"github.com/kittclouds/m3a/internal/logging"
	"github.com/kittclouds/m3a/internal/river"
	"github.com/kittclouds/m3a/internal/salience"
	"github.com/kittclouds/m3a/internal/store"
)

// LayerStatus is the per-layer outcome recorded in a WriteResult.
type LayerStatus struct {
	Success bool
	Skipped bool
	ID      string
	Cached  bool
	Reason  string
}

// WriteResult is the fan-out outcome of one process() call.
type WriteResult struct {
	MessageID              string
	L1                     LayerStatus
	L2                     LayerStatus
	L3Vector               LayerStatus
	L3Lexical              LayerStatus
	L3Graph                LayerStatus
	L4                     LayerStatus
	L5                     LayerStatus
	ConsolidationTriggered bool
}

// Options carries the per-call overrides and injected capabilities a
// process() invocation needs.
type Options struct {
	EmbeddingProvider llm.EmbeddingProvider
	EmbeddingModel    string
	Classifier        llm.Classifier
	AffectPrompter    func(content string) (systemPrompt, userPrompt string)
	ExtractionPrompter func(content string) (systemPrompt, userPrompt string)
}

// Pipeline wires together every layer plus the consolidator it triggers on
// overflow.
type Pipeline struct {
	store        *store.Store
	river        *river.River
	affect       *affect.Affect
	echo         *echo.Echo
	salience     *salience.Salience
	companion    *companion.Companion
	consolidator *consolidator.Consolidator
	log          *logging.Logger
}

// New builds a Pipeline over every layer sharing s.
func New(s *store.Store, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.Noop()
	}
	riv := river.New(s)
	aff := affect.New(s)
	ec := echo.New(s)
	sal := salience.New(s)
	comp := companion.New(s)
	return &Pipeline{
		store:        s,
		river:        riv,
		affect:       aff,
		echo:         ec,
		salience:     sal,
		companion:    comp,
		consolidator: consolidator.New(s, riv, aff, comp, log),
		log:          log,
	}
}

// Process fans content out across L1-L5 per the ordered contract of
// section 4.8. L1 always runs first and unconditionally; every other
// layer's failure is isolated to its own LayerStatus (I10).
func (p *Pipeline) Process(ctx context.Context, chatID, messageID, content string, cfg config.Snapshot, opts Options) (WriteResult, error) {
	result := WriteResult{MessageID: messageID}

	if !cfg.MemoryEnabled {
		result.L1 = LayerStatus{Skipped: true, Reason: "memoryEnabled=false"}
		result.L2 = LayerStatus{Skipped: true, Reason: "memoryEnabled=false"}
		result.L3Vector = LayerStatus{Skipped: true, Reason: "memoryEnabled=false"}
		result.L3Lexical = LayerStatus{Skipped: true, Reason: "memoryEnabled=false"}
		result.L3Graph = LayerStatus{Skipped: true, Reason: "memoryEnabled=false"}
		result.L4 = LayerStatus{Skipped: true, Reason: "memoryEnabled=false"}
		result.L5 = LayerStatus{Skipped: true, Reason: "memoryEnabled=false"}
		return result, nil
	}

	// 1. L1 unconditional.
	entry, err := p.river.Add(ctx, chatID, messageID, content)
	if err != nil {
		result.L1 = LayerStatus{Success: false, Reason: err.Error()}
	} else {
		result.L1 = LayerStatus{Success: true, ID: entry.ID}
		tokens, err := p.river.TokenCount(ctx, chatID)
		if err == nil && tokens > cfg.L1MaxTokens {
			result.ConsolidationTriggered = true
			go p.consolidator.RunOverflow(context.Background(), chatID, cfg)
		}
	}

	// 2. L2 affect (skippable, requires a Classifier).
	result.L2 = p.writeAffect(ctx, chatID, messageID, content, cfg, opts)

	// 3. L3 vector (skippable, requires an EmbeddingProvider).
	result.L3Vector = p.writeVector(ctx, chatID, messageID, content, opts)

	// 4. L3 lexical, unconditional best-effort.
	if err := p.echo.AddLexical(ctx, chatID, messageID, content); err != nil {
		result.L3Lexical = LayerStatus{Success: false, Reason: err.Error()}
		p.log.Warn("lexical index write failed", "chatId", chatID, "messageId", messageID, "err", err)
	} else {
		result.L3Lexical = LayerStatus{Success: true}
	}

	// 5. L3 graph (skippable, requires a Classifier).
	result.L3Graph = p.writeGraph(ctx, chatID, messageID, content, opts)

	// 6. L4 salience.
	result.L4 = p.writeSalience(ctx, chatID, messageID, content, cfg, result.L2)

	// 7. L5 companion.
	result.L5 = p.writeConcepts(ctx, chatID, content)

	return result, nil
}

// ProcessBatch runs Process once per message; a single failure is captured
// in that message's result but does not stop the batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, chatID string, messages []struct{ MessageID, Content string }, cfg config.Snapshot, opts Options) []WriteResult {
	results := make([]WriteResult, 0, len(messages))
	for _, m := range messages {
		res, err := p.Process(ctx, chatID, m.MessageID, m.Content, cfg, opts)
		if err != nil {
			res = WriteResult{MessageID: m.MessageID}
		}
		results = append(results, res)
	}
	return results
}
