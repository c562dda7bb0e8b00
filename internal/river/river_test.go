package river_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
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

func TestEvictRespectsBudget(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	r := river.New(s)
	chatID := uuid.NewString()

	// Each entry is 24 chars -> 6 tokens.
	for i := 0; i < 5; i++ {
		if _, err := r.Add(ctx, chatID, uuid.NewString(), "this is a test message!!"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	total, err := r.TokenCount(ctx, chatID)
	if err != nil {
		t.Fatalf("tokenCount: %v", err)
	}
	if total == 0 {
		t.Fatal("expected nonzero token total")
	}

	budget := total / 2
	evicted, err := r.Evict(ctx, chatID, budget)
	if err != nil {
		t.Fatalf("evict: %v", err)
	}
	if len(evicted) == 0 {
		t.Fatal("expected at least one evicted entry")
	}

	remaining, err := r.TokenCount(ctx, chatID)
	if err != nil {
		t.Fatalf("tokenCount after evict: %v", err)
	}
	if remaining > budget {
		t.Errorf("expected remaining tokens <= budget, got %d > %d", remaining, budget)
	}
}

func TestEvictNoOpUnderBudget(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	r := river.New(s)
	chatID := uuid.NewString()

	if _, err := r.Add(ctx, chatID, uuid.NewString(), "short"); err != nil {
		t.Fatalf("add: %v", err)
	}

	evicted, err := r.Evict(ctx, chatID, 10_000)
	if err != nil {
		t.Fatalf("evict: %v", err)
	}
	if len(evicted) != 0 {
		t.Errorf("expected no eviction under budget, got %d", len(evicted))
	}
}

func TestGetRecentOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	r := river.New(s)
	chatID := uuid.NewString()

	var ids []string
	for i := 0; i < 3; i++ {
		e, err := r.Add(ctx, chatID, uuid.NewString(), "message")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		ids = append(ids, e.ID)
	}

	entries, err := r.GetRecent(ctx, chatID, 10)
	if err != nil {
		t.Fatalf("getRecent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != ids[2] {
		t.Errorf("expected newest first, got %v", entries[0].ID)
	}
}
