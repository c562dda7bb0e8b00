package echo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/echo"
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

func TestSearchVectorRanksByCosine(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	e := echo.New(s)
	chatID := uuid.NewString()

	closeMatch := uuid.NewString()
	farMatch := uuid.NewString()
	if _, err := e.AddVector(ctx, chatID, closeMatch, "a", []float32{1, 0, 0}, "test-model"); err != nil {
		t.Fatalf("addVector: %v", err)
	}
	if _, err := e.AddVector(ctx, chatID, farMatch, "b", []float32{0, 1, 0}, "test-model"); err != nil {
		t.Fatalf("addVector: %v", err)
	}

	hits, err := e.SearchVector(ctx, chatID, "test-model", []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("searchVector: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].MessageID != closeMatch {
		t.Errorf("expected exact-direction match to rank first, got %s", hits[0].MessageID)
	}
}

func TestSearchVectorSkipsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	e := echo.New(s)
	chatID := uuid.NewString()

	if _, err := e.AddVector(ctx, chatID, uuid.NewString(), "a", []float32{1, 0}, "test-model"); err != nil {
		t.Fatalf("addVector: %v", err)
	}

	hits, err := e.SearchVector(ctx, chatID, "test-model", []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("searchVector: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected dimension-mismatched candidate to be skipped, got %d hits", len(hits))
	}
}

func TestCacheEmbeddingRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	e := echo.New(s)

	embedding := []float32{0.1, 0.2, 0.3}
	if err := e.CacheEmbedding(ctx, "hello world", "test-model", embedding); err != nil {
		t.Fatalf("cacheEmbedding: %v", err)
	}

	cached, ok, err := e.CachedEmbedding(ctx, "hello world", "test-model")
	if err != nil {
		t.Fatalf("cachedEmbedding: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if len(cached) != len(embedding) {
		t.Fatalf("expected %d dims, got %d", len(embedding), len(cached))
	}

	_, ok, err = e.CachedEmbedding(ctx, "never cached", "test-model")
	if err != nil {
		t.Fatalf("cachedEmbedding (miss): %v", err)
	}
	if ok {
		t.Error("expected a cache miss for uncached content")
	}
}

func TestAddLexicalIsSearchable(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	e := echo.New(s)
	chatID := uuid.NewString()
	messageID := uuid.NewString()

	if err := e.AddLexical(ctx, chatID, messageID, "the quick brown fox jumps"); err != nil {
		t.Fatalf("addLexical: %v", err)
	}

	hits, err := e.SearchLexical(ctx, chatID, "fox", 10)
	if err != nil {
		t.Fatalf("searchLexical: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].MessageID != messageID {
		t.Errorf("expected the indexed message to match, got %s", hits[0].MessageID)
	}
}

func TestGetRelatedWalksOneHop(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	e := echo.New(s)
	chatID := uuid.NewString()

	a, err := e.AddEntity(ctx, store.EntityPerson, "Ada", "Ada Lovelace", &chatID)
	if err != nil {
		t.Fatalf("addEntity a: %v", err)
	}
	b, err := e.AddEntity(ctx, store.EntityTool, "Analytical Engine", "", &chatID)
	if err != nil {
		t.Fatalf("addEntity b: %v", err)
	}
	if _, err := e.AddRelation(ctx, a.ID, b.ID, store.RelUses, uuid.NewString(), 0.9); err != nil {
		t.Fatalf("addRelation: %v", err)
	}

	related, err := e.GetRelated(ctx, "Ada", &chatID, 1)
	if err != nil {
		t.Fatalf("getRelated: %v", err)
	}
	if len(related) != 1 {
		t.Fatalf("expected 1 related entity, got %d", len(related))
	}
	if related[0].Entity.ID != b.ID || related[0].Distance != 1 {
		t.Errorf("expected %s at distance 1, got %+v", b.ID, related[0])
	}
}
