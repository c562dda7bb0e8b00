package affect_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/affect"
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

func TestGetOrdersByIntensityDescending(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	a := affect.New(s)
	chatID := uuid.NewString()

	if _, err := a.Add(ctx, chatID, uuid.NewString(), store.AffectFrustrated, 0.3, "mild"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := a.Add(ctx, chatID, uuid.NewString(), store.AffectFrustrated, 0.9, "sharp"); err != nil {
		t.Fatalf("add: %v", err)
	}

	entries, err := a.Get(ctx, chatID, affect.DefaultGetOptions())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Intensity < entries[1].Intensity {
		t.Errorf("expected descending intensity order, got %v then %v", entries[0].Intensity, entries[1].Intensity)
	}
}

func TestGetFiltersByMinIntensity(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	a := affect.New(s)
	chatID := uuid.NewString()

	if _, err := a.Add(ctx, chatID, uuid.NewString(), store.AffectCurious, 0.2, "low"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := a.Add(ctx, chatID, uuid.NewString(), store.AffectCurious, 0.8, "high"); err != nil {
		t.Fatalf("add: %v", err)
	}

	opts := affect.DefaultGetOptions()
	opts.MinIntensity = 0.5
	entries, err := a.Get(ctx, chatID, opts)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry above threshold, got %d", len(entries))
	}
	if entries[0].Intensity != 0.8 {
		t.Errorf("expected the high-intensity entry to survive, got %v", entries[0].Intensity)
	}
}

func TestDecayShrinksFactor(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	a := affect.New(s)
	chatID := uuid.NewString()

	if _, err := a.Add(ctx, chatID, uuid.NewString(), store.AffectSatisfied, 1.0, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := a.Decay(ctx, chatID, 0.5); err != nil {
		t.Fatalf("decay: %v", err)
	}

	entries, err := a.Get(ctx, chatID, affect.DefaultGetOptions())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].DecayFactor != 0.5 {
		t.Errorf("expected decayFactor 0.5 after one decay pass, got %v", entries[0].DecayFactor)
	}
}
