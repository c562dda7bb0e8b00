package salience_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/salience"
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

func TestPinOverridesScoreAndPriority(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	sl := salience.New(s)
	chatID, messageID := uuid.NewString(), uuid.NewString()

	if _, err := sl.Add(ctx, chatID, messageID, "low value aside", 0.1, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	entry, err := sl.Pin(ctx, chatID, messageID, "low value aside")
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if entry.SalienceScore != 1.0 || entry.RetentionPriority != 100 || !entry.UserPinned {
		t.Errorf("expected pin to force score=1.0 priority=100 pinned=true, got %+v", entry)
	}

	opts := salience.DefaultGetOptions()
	opts.PinnedOnly = true
	entries, err := sl.Get(ctx, chatID, opts)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(entries) != 1 || entries[0].MessageID != messageID {
		t.Fatalf("expected pinned-only filter to surface the pinned row, got %+v", entries)
	}
}

func TestScoreCapsAtOne(t *testing.T) {
	content := "This is broken and an error crashed; decided on a solution, learned something. " +
		"What happened? Why? How? " + "`code` " + "https://example.com\n- item one\n- item two"
	score := salience.Score(content, 1.0)
	if score > 1.0 {
		t.Errorf("expected score capped at 1.0, got %v", score)
	}
	if score != 1.0 {
		t.Errorf("expected this content to saturate the cap, got %v", score)
	}
}

func TestScorePlainTextIsLow(t *testing.T) {
	score := salience.Score("ok", 0)
	if score != 0 {
		t.Errorf("expected a short, signal-free message to score 0, got %v", score)
	}
}
