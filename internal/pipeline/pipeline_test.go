package pipeline_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/config"
	"github.com/kittclouds/m3a/internal/pipeline"
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

func TestProcessSkipsEverythingWhenMemoryDisabled(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	p := pipeline.New(s, nil)
	chatID, messageID := uuid.NewString(), uuid.NewString()

	cfg := config.Default()
	cfg.MemoryEnabled = false

	result, err := p.Process(ctx, chatID, messageID, "anything", cfg, pipeline.Options{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	for name, status := range map[string]pipeline.LayerStatus{
		"L1": result.L1, "L2": result.L2, "L3Vector": result.L3Vector,
		"L3Lexical": result.L3Lexical, "L3Graph": result.L3Graph, "L4": result.L4, "L5": result.L5,
	} {
		if !status.Skipped {
			t.Errorf("expected %s to be skipped when memory is disabled, got %+v", name, status)
		}
	}
}

func TestProcessUnconditionalL1EvenWithoutCapabilities(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	p := pipeline.New(s, nil)
	chatID, messageID := uuid.NewString(), uuid.NewString()

	result, err := p.Process(ctx, chatID, messageID, "I'm debugging a Go service that uses SQLite.", config.Default(), pipeline.Options{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.L1.Success {
		t.Errorf("expected L1 to succeed unconditionally, got %+v", result.L1)
	}
	if !result.L3Lexical.Success {
		t.Errorf("expected L3 lexical to succeed unconditionally, got %+v", result.L3Lexical)
	}
	// No EmbeddingProvider/Classifier supplied: vector, graph, and affect all
	// skip rather than fail, since none of them has a capability to run.
	if !result.L3Vector.Skipped {
		t.Errorf("expected L3 vector to be skipped without an EmbeddingProvider, got %+v", result.L3Vector)
	}
}

func TestProcessIsolatesLayerFailures(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	p := pipeline.New(s, nil)
	chatID, messageID := uuid.NewString(), uuid.NewString()

	// A message with no salient signal and no affect trigger still produces
	// a full result: every layer that has nothing to do reports Skipped
	// rather than failing the whole write.
	result, err := p.Process(ctx, chatID, messageID, "ok", config.Default(), pipeline.Options{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.L1.Success {
		t.Fatalf("expected L1 to succeed regardless of other layers, got %+v", result.L1)
	}
}
