// Package salience implements L4 Salience: a heuristic, pinnable
// retention-priority store, per section 4.6.
package salience

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/kernel"
	"github.com/kittclouds/m3a/internal/store"
)

// GetOptions filters and bounds a Salience.Get call.
type GetOptions struct {
	MinScore     float64
	PinnedOnly   bool
	Limit        int
	IncludeMuted bool
}

// DefaultGetOptions returns the package's default filter bounds.
func DefaultGetOptions() GetOptions {
	return GetOptions{MinScore: 0, Limit: 50, IncludeMuted: false}
}

// Salience is the L4 layer, backed by a *store.Store.
type Salience struct {
	store *store.Store
}

// New wraps s as the L4 Salience layer.
func New(s *store.Store) *Salience {
	return &Salience{store: s}
}

// Add upserts by messageID, deriving retentionPriority = floor(score*100).
func (sl *Salience) Add(ctx context.Context, chatID, messageID, content string, score float64, predictionError *float64) (store.L4SalienceEntry, error) {
	entry := store.L4SalienceEntry{
		ID:                uuid.NewString(),
		ChatID:            chatID,
		MessageID:         messageID,
		Content:           content,
		SalienceScore:     score,
		PredictionError:   predictionError,
		RetentionPriority: int(math.Floor(score * 100)),
		CreatedAt:         time.Now(),
		LastAccessedAt:    time.Now(),
	}
	if err := sl.store.UpsertSalience(ctx, entry); err != nil {
		return store.L4SalienceEntry{}, err
	}
	return entry, nil
}

// Pin upserts messageID forcing userPinned=true, score=1.0, priority=100,
// regardless of any prior state (I5).
func (sl *Salience) Pin(ctx context.Context, chatID, messageID, content string) (store.L4SalienceEntry, error) {
	entry := store.L4SalienceEntry{
		ID:                uuid.NewString(),
		ChatID:            chatID,
		MessageID:         messageID,
		Content:           content,
		SalienceScore:     1.0,
		UserPinned:        true,
		RetentionPriority: 100,
		CreatedAt:         time.Now(),
		LastAccessedAt:    time.Now(),
	}
	if err := sl.store.UpsertSalience(ctx, entry); err != nil {
		return store.L4SalienceEntry{}, err
	}
	if err := sl.store.SetPinned(ctx, messageID, true); err != nil {
		return store.L4SalienceEntry{}, err
	}
	return entry, nil
}

// Get returns rows for chatID honoring opts, ordered by retentionPriority
// then salienceScore descending.
func (sl *Salience) Get(ctx context.Context, chatID string, opts GetOptions) ([]store.L4SalienceEntry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	entries, err := sl.store.SalienceEntries(ctx, chatID, opts.PinnedOnly, limit*4)
	if err != nil {
		return nil, err
	}

	filtered := entries[:0]
	for _, e := range entries {
		if e.SalienceScore < opts.MinScore {
			continue
		}
		filtered = append(filtered, e)
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

var (
	errorPattern    = regexp.MustCompile(`(?i)error|bug|broken|failed|crash|issue|problem|wrong|fix`)
	solutionPattern = regexp.MustCompile(`(?i)decided|solution|solved|fixed|resolved|answer|figured out`)
	insightPattern  = regexp.MustCompile(`(?i)learned|realized|discovered|understand|now I know`)
	urlPattern      = regexp.MustCompile(`https?://`)
	listLinePattern = regexp.MustCompile(`(?m)^\s*[-*\d]`)
)

// Score computes the pure salience-scoring function from section 4.6: a
// weighted sum of textual signals plus an optional affect-intensity boost,
// capped at 1.0.
func Score(content string, affectIntensity float64) float64 {
	var score float64
	tokens := kernel.EstimateTokens(content)

	if tokens > 100 {
		score += 0.1
	}
	if tokens > 500 {
		score += 0.1
	}

	questionBonus := 0.1 * float64(strings.Count(content, "?"))
	if questionBonus > 0.2 {
		questionBonus = 0.2
	}
	score += questionBonus

	if errorPattern.MatchString(content) {
		score += 0.3
	}
	if solutionPattern.MatchString(content) {
		score += 0.25
	}
	if insightPattern.MatchString(content) {
		score += 0.2
	}
	if affectIntensity > 0.5 {
		score += affectIntensity * 0.2
	}
	if strings.Contains(content, "`") {
		score += 0.15
	}
	if urlPattern.MatchString(content) {
		score += 0.1
	}
	if listLinePattern.MatchString(content) {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
