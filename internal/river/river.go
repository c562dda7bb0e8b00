// Package river implements L1 River: the sliding, token-bounded recency
// buffer described in section 4.3. Eviction is logical — rows are
// tombstoned with evictedAt, never deleted, so the L3 lexical index can
// still surface their content.
package river

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/kernel"
	"github.com/kittclouds/m3a/internal/m3aerrors"
	"github.com/kittclouds/m3a/internal/store"
)

// Stats summarizes the live entries for a chat.
type Stats struct {
	Count   int
	Tokens  uint32
	Oldest  *time.Time
	Newest  *time.Time
}

// River is the L1 layer, backed by a *store.Store.
type River struct {
	store *store.Store
}

// New wraps s as the L1 River layer.
func New(s *store.Store) *River {
	return &River{store: s}
}

// Add inserts a new river entry for content, computing its token count, and
// returns the persisted entry.
func (r *River) Add(ctx context.Context, chatID, messageID, content string) (store.L1RiverEntry, error) {
	entry := store.L1RiverEntry{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		MessageID:  messageID,
		Content:    content,
		TokenCount: kernel.EstimateTokens(content),
		Timestamp:  time.Now(),
	}
	if err := r.store.InsertRiverEntry(ctx, entry); err != nil {
		return store.L1RiverEntry{}, err
	}
	return entry, nil
}

// GetRecent returns non-evicted rows for chatID, newest first, capped at
// limit.
func (r *River) GetRecent(ctx context.Context, chatID string, limit int) ([]store.L1RiverEntry, error) {
	return r.store.RecentRiverEntries(ctx, chatID, limit)
}

// TokenCount sums token_count over every non-evicted row.
func (r *River) TokenCount(ctx context.Context, chatID string) (uint32, error) {
	return r.store.RiverTokenTotal(ctx, chatID)
}

// Stats reports count, live token total, and the oldest/newest timestamps.
func (r *River) Stats(ctx context.Context, chatID string) (Stats, error) {
	entries, err := r.store.LiveRiverEntries(ctx, chatID)
	if err != nil {
		return Stats{}, err
	}
	if len(entries) == 0 {
		return Stats{}, nil
	}

	var s Stats
	s.Count = len(entries)
	oldest, newest := entries[0].Timestamp, entries[0].Timestamp
	for _, e := range entries {
		s.Tokens += e.TokenCount
		if e.Timestamp.Before(oldest) {
			oldest = e.Timestamp
		}
		if e.Timestamp.After(newest) {
			newest = e.Timestamp
		}
	}
	s.Oldest = &oldest
	s.Newest = &newest
	return s, nil
}

// Evict tombstones the oldest non-evicted rows, one at a time, until the
// live token sum is at most maxTokens (I1). Returns exactly the entries it
// evicted, oldest first. If the budget is already respected, returns an
// empty slice without touching the store.
func (r *River) Evict(ctx context.Context, chatID string, maxTokens uint32) ([]store.L1RiverEntry, error) {
	entries, err := r.store.LiveRiverEntries(ctx, chatID)
	if err != nil {
		return nil, err
	}

	var total uint32
	for _, e := range entries {
		total += e.TokenCount
	}
	if total <= maxTokens {
		return nil, nil
	}

	var evicted []store.L1RiverEntry
	var ids []string
	for _, e := range entries {
		if total <= maxTokens {
			break
		}
		evicted = append(evicted, e)
		ids = append(ids, e.ID)
		total -= e.TokenCount
	}

	if len(ids) == 0 {
		return nil, m3aerrors.InvariantViolation("evict selected zero entries above budget")
	}

	now := time.Now()
	if err := r.store.EvictRiverEntries(ctx, ids, now); err != nil {
		return nil, err
	}
	for i := range evicted {
		t := now
		evicted[i].EvictedAt = &t
	}
	return evicted, nil
}
