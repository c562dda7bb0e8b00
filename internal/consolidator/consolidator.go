// Package consolidator implements the consolidation run described in
// section 4.10: L1 eviction, conflict detection, L5 edge decay and pruning,
// and L2 affect decay, recorded as an audited ConsolidationRun.
package consolidator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/affect"
	"github.com/kittclouds/m3a/internal/companion"
	"github.com/kittclouds/m3a/internal/config"
	"github.com/kittclouds/m3a/internal/logging"
	"github.com/kittclouds/m3a/internal/river"
	"github.com/kittclouds/m3a/internal/store"
)

// pruneWeightThreshold is the weight·temporalDecay floor below which an L5
// edge is dropped (I6).
const pruneWeightThreshold = 0.1

// Consolidator runs the seven-step maintenance pass over a chat's memory.
type Consolidator struct {
	store     *store.Store
	river     *river.River
	affect    *affect.Affect
	companion *companion.Companion
	log       *logging.Logger
}

// New wires a Consolidator over the shared store and the layers it touches.
func New(s *store.Store, riv *river.River, aff *affect.Affect, comp *companion.Companion, log *logging.Logger) *Consolidator {
	if log == nil {
		log = logging.Noop()
	}
	return &Consolidator{store: s, river: riv, affect: aff, companion: comp, log: log}
}

// RunOverflow runs a consolidation pass triggered by L1 exceeding
// cfg.L1MaxTokens. Intended to be invoked via `go` from the write pipeline;
// every step failure is logged and isolated so the run still closes.
func (c *Consolidator) RunOverflow(ctx context.Context, chatID string, cfg config.Snapshot) {
	c.run(ctx, chatID, store.TriggerOverflow, cfg)
}

// RunScheduled runs one consolidation pass, recorded with the scheduled
// trigger. It starts no timer and does not read cfg.ConsolidationSchedule;
// each pass runs only when the caller invokes it.
func (c *Consolidator) RunScheduled(ctx context.Context, chatID string, cfg config.Snapshot) {
	c.run(ctx, chatID, store.TriggerScheduled, cfg)
}

// RunManual runs an operator- or API-triggered consolidation pass.
func (c *Consolidator) RunManual(ctx context.Context, chatID string, cfg config.Snapshot) {
	c.run(ctx, chatID, store.TriggerManual, cfg)
}

func (c *Consolidator) run(ctx context.Context, chatID string, trigger store.TriggerType, cfg config.Snapshot) {
	runID := uuid.NewString()
	startedAt := time.Now()
	if err := c.store.StartConsolidationRun(ctx, runID, chatID, trigger, startedAt); err != nil {
		c.log.Error("consolidation run failed to start", "chatId", chatID, "trigger", trigger, "err", err)
		return
	}

	var itemsProcessed, summariesCreated, conflictsDetected int

	// 1. L1 eviction, only when the trigger is overflow-relevant.
	if trigger == store.TriggerOverflow && cfg.L1OverflowCallback == config.OverflowConsolidate {
		evicted, err := c.river.Evict(ctx, chatID, cfg.L1MaxTokens)
		if err != nil {
			c.log.Warn("consolidation: L1 eviction failed", "chatId", chatID, "err", err)
		} else {
			itemsProcessed += len(evicted)
		}
	}

	// 2. Conflict detection is a placeholder pending a dedicated semantic
	// comparison pass; no conflicts are surfaced yet.
	conflictsDetected = 0

	// 3. L5 decay then prune.
	if err := c.companion.DecayEdges(ctx, cfg.L5TemporalDecayRate); err != nil {
		c.log.Warn("consolidation: L5 decay failed", "chatId", chatID, "err", err)
	}
	if pruned, err := c.companion.PruneWeakEdges(ctx, pruneWeightThreshold); err != nil {
		c.log.Warn("consolidation: L5 prune failed", "chatId", chatID, "err", err)
	} else {
		itemsProcessed += pruned
	}

	// 4. L2 decay.
	if err := c.affect.Decay(ctx, chatID, cfg.L2DecayRate); err != nil {
		c.log.Warn("consolidation: L2 decay failed", "chatId", chatID, "err", err)
	}

	completedAt := time.Now()
	if err := c.store.FinishConsolidationRun(ctx, runID, itemsProcessed, summariesCreated, conflictsDetected, completedAt); err != nil {
		c.log.Error("consolidation run failed to close", "chatId", chatID, "runId", runID, "err", err)
	}
}
