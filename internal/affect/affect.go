// Package affect implements L2 Affect: categorical affect markers with
// intensity-weighted retrieval ordering and exponential decay, per
// section 4.4.
package affect

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/store"
)

// GetOptions filters and bounds an Affect.Get call.
type GetOptions struct {
	Category     *store.AffectCategory
	MinIntensity float64
	Limit        int
	IncludeMuted bool
}

// DefaultGetOptions returns the package's default filter bounds.
func DefaultGetOptions() GetOptions {
	return GetOptions{MinIntensity: 0, Limit: 100, IncludeMuted: false}
}

// Affect is the L2 layer, backed by a *store.Store.
type Affect struct {
	store *store.Store
}

// New wraps s as the L2 Affect layer.
func New(s *store.Store) *Affect {
	return &Affect{store: s}
}

// Add inserts a new affect marker with decayFactor=1.0, isMuted=false.
func (a *Affect) Add(ctx context.Context, chatID, messageID string, category store.AffectCategory, intensity float64, reasoning string) (store.L2AffectEntry, error) {
	entry := store.L2AffectEntry{
		ID:             uuid.NewString(),
		ChatID:         chatID,
		MessageID:      messageID,
		Category:       category,
		Intensity:      intensity,
		Reasoning:      reasoning,
		DecayFactor:    1.0,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	if err := a.store.InsertAffectEntry(ctx, entry); err != nil {
		return store.L2AffectEntry{}, err
	}
	return entry, nil
}

// Get returns affect rows for chatID honoring opts, ordered by
// intensity·decayFactor descending, and bumps lastAccessedAt on every
// returned row.
func (a *Affect) Get(ctx context.Context, chatID string, opts GetOptions) ([]store.L2AffectEntry, error) {
	entries, err := a.store.AffectEntries(ctx, chatID, opts.IncludeMuted)
	if err != nil {
		return nil, err
	}

	filtered := entries[:0]
	for _, e := range entries {
		if opts.Category != nil && e.Category != *opts.Category {
			continue
		}
		if e.Intensity < opts.MinIntensity {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Intensity*filtered[i].DecayFactor > filtered[j].Intensity*filtered[j].DecayFactor
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// Decay multiplies decayFactor by rate for every row of chatID (I4:
// rate ∈ (0,1) makes every factor strictly smaller).
func (a *Affect) Decay(ctx context.Context, chatID string, rate float64) error {
	return a.store.DecayAffectEntries(ctx, chatID, rate)
}
