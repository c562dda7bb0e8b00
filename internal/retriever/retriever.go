// Package retriever implements the ensemble retriever of section 4.9: a
// dynamic-weight merge of L1-L5 candidate scores keyed by message identity.
package retriever

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kittclouds/m3a/internal/affect"
	"github.com/kittclouds/m3a/internal/companion"
	"github.com/kittclouds/m3a/internal/echo"
	"github.com/kittclouds/m3a/internal/river"
	"github.com/kittclouds/m3a/internal/salience"
)

// TemporalBias is the closed set of retrieval temporal preferences.
type TemporalBias string

const (
	TemporalRecent   TemporalBias = "recent"
	TemporalBalanced TemporalBias = "balanced"
	TemporalSalient  TemporalBias = "salient"
)

const (
	layerL1 = "L1"
	layerL2 = "L2"
	layerL3 = "L3"
	layerL4 = "L4"
	layerL5 = "L5"
)

// defaultWeights are the implementation-defined starting weights; their only
// hard constraint is summing to 1.0 (I8 holds after any renormalization).
func defaultWeights() map[string]float64 {
	return map[string]float64{layerL1: 0.2, layerL2: 0.2, layerL3: 0.2, layerL4: 0.2, layerL5: 0.2}
}

var (
	recentTrigger  = regexp.MustCompile(`\b(recent|just|earlier|before|last|now)\b`)
	certainTrigger = regexp.MustCompile(`\b(definitely|certainly|sure|always|never|exactly)\b`)
	problemTrigger = regexp.MustCompile(`\b(broke|failed|error|crash|bug|issue|problem|wrong)\b`)
	commonTrigger  = regexp.MustCompile(`\b(usually|typically|common|often|people|everyone)\b`)
)

// Query is the retrieval request of section 4.9.
type Query struct {
	ChatID         string
	Query          string
	TopK           int
	Layers         []string
	AffectBoost    []string
	TemporalBias   TemporalBias
	EmbeddingModel string
}

// MemoryResult is one ranked, ensemble-scored candidate.
type MemoryResult struct {
	MessageID       string
	Content         string
	FinalScore      float64
	DominantLayer   string
	LayerScores     map[string]float64
	AffectCategory  string
	AffectIntensity float64
	SalienceScore   float64
}

// Retriever merges per-layer candidate scores under computeWeights.
type Retriever struct {
	river     *river.River
	affect    *affect.Affect
	echo      *echo.Echo
	salience  *salience.Salience
	companion *companion.Companion
}

// New wires a Retriever over every layer it reads from.
func New(riv *river.River, aff *affect.Affect, ec *echo.Echo, sal *salience.Salience, comp *companion.Companion) *Retriever {
	return &Retriever{river: riv, affect: aff, echo: ec, salience: sal, companion: comp}
}

// computeWeights applies the additive bump table of section 4.9.1 to
// defaultWeights and renormalizes to sum 1.0 (I8, I9: purely a function of
// q, so identical input always yields identical weights).
func computeWeights(q Query) map[string]float64 {
	w := defaultWeights()
	lowered := strings.ToLower(q.Query)

	if recentTrigger.MatchString(lowered) {
		w[layerL1] += 0.25
	}
	if len(q.AffectBoost) > 0 {
		w[layerL2] += 0.20
	}
	if certainTrigger.MatchString(lowered) {
		w[layerL3] += 0.20
	}
	if problemTrigger.MatchString(lowered) {
		w[layerL4] += 0.25
	}
	if commonTrigger.MatchString(lowered) {
		w[layerL5] += 0.20
	}
	switch q.TemporalBias {
	case TemporalRecent:
		w[layerL1] += 0.15
		w[layerL4] -= 0.10
	case TemporalSalient:
		w[layerL4] += 0.15
		w[layerL1] -= 0.10
	}

	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum != 0 {
		for k := range w {
			w[k] /= sum
		}
	}
	return w
}

func layerEnabled(q Query, layer string) bool {
	if len(q.Layers) == 0 {
		return true
	}
	for _, l := range q.Layers {
		if l == layer {
			return true
		}
	}
	return false
}

type candidate struct {
	content         string
	layerScores     map[string]float64
	affectCategory  string
	affectIntensity float64
	salienceScore   float64
}

// Retrieve runs the five-step contract of section 4.9: compute weights,
// collect per-layer candidates, merge by messageId, score, and return the
// top q.TopK (default 10) descending.
func (r *Retriever) Retrieve(ctx context.Context, q Query, queryEmbedding []float32) ([]MemoryResult, error) {
	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}
	weights := computeWeights(q)
	fetchLimit := topK * 2

	candidates := make(map[string]*candidate)
	get := func(id string) *candidate {
		c, ok := candidates[id]
		if !ok {
			c = &candidate{layerScores: make(map[string]float64)}
			candidates[id] = c
		}
		return c
	}

	if layerEnabled(q, layerL1) {
		entries, err := r.river.GetRecent(ctx, q.ChatID, fetchLimit)
		if err == nil {
			now := time.Now()
			for _, e := range entries {
				ageMs := float64(now.Sub(e.Timestamp).Milliseconds())
				score := math.Exp(-ageMs / 86_400_000)
				c := get(e.MessageID)
				c.content = e.Content
				c.layerScores[layerL1] += score
			}
		}
	}

	if layerEnabled(q, layerL2) {
		opts := affect.DefaultGetOptions()
		opts.Limit = fetchLimit
		entries, err := r.affect.Get(ctx, q.ChatID, opts)
		if err == nil {
			for _, e := range entries {
				c := get(e.MessageID)
				c.layerScores[layerL2] += e.Intensity * e.DecayFactor
				c.affectCategory = string(e.Category)
				c.affectIntensity = e.Intensity
			}
		}
	}

	if layerEnabled(q, layerL3) {
		if len(queryEmbedding) > 0 && q.EmbeddingModel != "" {
			hits, err := r.echo.SearchVector(ctx, q.ChatID, q.EmbeddingModel, queryEmbedding, fetchLimit)
			if err == nil {
				for _, h := range hits {
					get(h.MessageID).layerScores[layerL3] += h.Score * 0.6
				}
			}
		}
		if q.Query != "" {
			hits, err := r.echo.SearchLexical(ctx, q.ChatID, q.Query, fetchLimit)
			if err == nil {
				for _, h := range hits {
					c := get(h.MessageID)
					if c.content == "" {
						c.content = h.Content
					}
					c.layerScores[layerL3] += h.Score * 0.4
				}
			}
		}
	}

	if layerEnabled(q, layerL4) {
		opts := salience.DefaultGetOptions()
		opts.Limit = fetchLimit
		entries, err := r.salience.Get(ctx, q.ChatID, opts)
		if err == nil {
			for _, e := range entries {
				c := get(e.MessageID)
				if c.content == "" {
					c.content = e.Content
				}
				mult := 1.0
				if e.UserPinned {
					mult = 1.5
				}
				c.layerScores[layerL4] += e.SalienceScore * mult
				c.salienceScore = e.SalienceScore
			}
		}
	}

	// L5 is reserved: concept extraction of the query is out of scope.

	results := make([]MemoryResult, 0, len(candidates))
	for messageID, c := range candidates {
		var finalScore float64
		var dominantLayer string
		var dominantWeighted float64
		// Fixed L1->L5 order, not map iteration order, so a tie between two
		// layers' weighted scores always resolves to the same dominant layer
		// (I9: identical inputs, identical ordering).
		for _, layer := range []string{layerL1, layerL2, layerL3, layerL4, layerL5} {
			score, ok := c.layerScores[layer]
			if !ok {
				continue
			}
			weighted := weights[layer] * score
			finalScore += weighted
			if dominantLayer == "" || weighted > dominantWeighted {
				dominantLayer = layer
				dominantWeighted = weighted
			}
		}
		results = append(results, MemoryResult{
			MessageID:       messageID,
			Content:         c.content,
			FinalScore:      finalScore,
			DominantLayer:   dominantLayer,
			LayerScores:     c.layerScores,
			AffectCategory:  c.affectCategory,
			AffectIntensity: c.affectIntensity,
			SalienceScore:   c.salienceScore,
		})
	}

	sortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// sortResults orders by finalScore descending, with messageId as a stable
// tiebreaker: results is built from a map, so without one, equal-finalScore
// candidates would retain Go's unspecified map-iteration order (I9 requires
// identical inputs to always produce identical ordering).
func sortResults(results []MemoryResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].MessageID < results[j].MessageID
	})
}
