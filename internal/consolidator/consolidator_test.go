package consolidator_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/affect"
	"github.com/kittclouds/m3a/internal/companion"
	"github.com/kittclouds/m3a/internal/config"
	"github.com/kittclouds/m3a/internal/consolidator"
	"github.com/kittclouds/m3a/internal/river"
	"github.com/kittclouds/m3a/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:", store.DefaultPragmas(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunManualClosesAHistoryRow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	chatID := uuid.NewString()

	c := consolidator.New(s, river.New(s), affect.New(s), companion.New(s), nil)
	c.RunManual(ctx, chatID, config.Default())

	history, err := s.ConsolidationHistory(ctx, chatID, 5)
	if err != nil {
		t.Fatalf("consolidationHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 run recorded, got %d", len(history))
	}
	if history[0].TriggerType != store.TriggerManual {
		t.Errorf("expected TriggerManual, got %v", history[0].TriggerType)
	}
	if history[0].CompletedAt == nil {
		t.Error("expected the run to close with a completion time")
	}
}

func TestRunOverflowEvictsWhenConfiguredToConsolidate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	chatID := uuid.NewString()
	riv := river.New(s)

	for i := 0; i < 5; i++ {
		if _, err := riv.Add(ctx, chatID, uuid.NewString(), "this is a test message!!"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	total, err := riv.TokenCount(ctx, chatID)
	if err != nil {
		t.Fatalf("tokenCount: %v", err)
	}

	cfg := config.Default()
	cfg.L1MaxTokens = uint32(total / 2)
	cfg.L1OverflowCallback = config.OverflowConsolidate

	c := consolidator.New(s, riv, affect.New(s), companion.New(s), nil)
	c.RunOverflow(ctx, chatID, cfg)

	remaining, err := riv.TokenCount(ctx, chatID)
	if err != nil {
		t.Fatalf("tokenCount after run: %v", err)
	}
	if remaining > int(cfg.L1MaxTokens) {
		t.Errorf("expected eviction down to the configured budget, got %d > %d", remaining, cfg.L1MaxTokens)
	}

	history, err := s.ConsolidationHistory(ctx, chatID, 5)
	if err != nil {
		t.Fatalf("consolidationHistory: %v", err)
	}
	if len(history) != 1 || history[0].ItemsProcessed == 0 {
		t.Errorf("expected itemsProcessed > 0 after an eviction, got %+v", history)
	}
}

func TestRunScheduledDecaysCompanionEdges(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	chatID := uuid.NewString()
	comp := companion.New(s)

	a, err := comp.AddNode(ctx, store.NodeConcept, "go", &chatID)
	if err != nil {
		t.Fatalf("addNode a: %v", err)
	}
	b, err := comp.AddNode(ctx, store.NodeConcept, "sqlite", &chatID)
	if err != nil {
		t.Fatalf("addNode b: %v", err)
	}
	if err := comp.Reinforce(ctx, a.ID, b.ID, 1.0); err != nil {
		t.Fatalf("reinforce: %v", err)
	}

	cfg := config.Default()
	cfg.L5TemporalDecayRate = 0.5

	c := consolidator.New(s, river.New(s), affect.New(s), comp, nil)
	c.RunScheduled(ctx, chatID, cfg)

	neighbors, err := comp.Neighbors(ctx, a.ID, 10)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(neighbors) != 1 {
		t.Fatalf("expected 1 neighbor to survive decay, got %d", len(neighbors))
	}
	if neighbors[0].Score >= 1.0 {
		t.Errorf("expected the edge score to have decayed below 1.0, got %v", neighbors[0].Score)
	}
}
