package store_test

import (
	"context"
	"testing"

	"github.com/kittclouds/m3a/internal/config"
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

func TestOpenAppliesMigrations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	// LoadConfig only succeeds if the memory_config table migration applied.
	if _, err := s.LoadConfig(ctx); err != nil {
		t.Fatalf("expected migrations to have created memory_config, got: %v", err)
	}
}

func TestLoadConfigDefaultsOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	snap, err := s.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if snap != config.Default() {
		t.Errorf("expected defaults on an empty store, got %+v", snap)
	}
}

func TestSaveConfigThenLoadRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	want := config.Default()
	want.L1MaxTokens = 2000
	want.MemoryEnabled = false

	if err := s.SaveConfig(ctx, want); err != nil {
		t.Fatalf("saveConfig: %v", err)
	}
	got, err := s.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got != want {
		t.Errorf("expected saved snapshot to round-trip, got %+v want %+v", got, want)
	}
}

func TestPatchConfigOverridesSingleKey(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.PatchConfig(ctx, config.KeyL4SalienceThreshold, "0.55"); err != nil {
		t.Fatalf("patchConfig: %v", err)
	}
	snap, err := s.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if snap.L4SalienceThreshold != 0.55 {
		t.Errorf("expected patched threshold 0.55, got %v", snap.L4SalienceThreshold)
	}
	// Every other key still defaults.
	if snap.L1MaxTokens != config.DefaultL1MaxTokens {
		t.Errorf("expected unpatched key to keep its default, got %v", snap.L1MaxTokens)
	}
}
