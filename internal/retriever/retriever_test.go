package retriever

import (
	"math"
	"testing"
)

func sumWeights(w map[string]float64) float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

func TestComputeWeightsNormalizes(t *testing.T) {
	queries := []Query{
		{Query: "balanced query"},
		{Query: "what did we decide recently"},
		{Query: "I'm frustrated, the build failed and it usually works", AffectBoost: []string{"FRUSTRATED"}, TemporalBias: TemporalRecent},
		{Query: "this is definitely broken, people usually hit this", TemporalBias: TemporalSalient},
	}
	for _, q := range queries {
		w := computeWeights(q)
		sum := sumWeights(w)
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("query %q: expected weights to sum to 1.0, got %v (%v)", q.Query, sum, w)
		}
	}
}

func TestComputeWeightsDeterministic(t *testing.T) {
	q := Query{Query: "the build failed", TemporalBias: TemporalRecent}
	a := computeWeights(q)
	b := computeWeights(q)
	for layer, wa := range a {
		if wa != b[layer] {
			t.Errorf("layer %s: expected deterministic weights, got %v vs %v", layer, wa, b[layer])
		}
	}
}

func TestComputeWeightsBoostsRelevantLayers(t *testing.T) {
	base := computeWeights(Query{Query: "balanced"})
	bumped := computeWeights(Query{Query: "the build failed", TemporalBias: TemporalRecent, AffectBoost: []string{"FRUSTRATED"}})

	if bumped[layerL4] <= base[layerL4] {
		t.Errorf("expected L4 to increase on a problem-pattern query, base=%v bumped=%v", base[layerL4], bumped[layerL4])
	}
	if bumped[layerL2] <= base[layerL2] {
		t.Errorf("expected L2 to increase when affectBoost is set, base=%v bumped=%v", base[layerL2], bumped[layerL2])
	}
}

func TestLayerEnabledDefaultsToAll(t *testing.T) {
	q := Query{}
	for _, l := range []string{layerL1, layerL2, layerL3, layerL4, layerL5} {
		if !layerEnabled(q, l) {
			t.Errorf("expected layer %s enabled by default", l)
		}
	}
}

func TestLayerEnabledRestricts(t *testing.T) {
	q := Query{Layers: []string{layerL1, layerL4}}
	if !layerEnabled(q, layerL1) || !layerEnabled(q, layerL4) {
		t.Fatal("expected requested layers enabled")
	}
	if layerEnabled(q, layerL2) {
		t.Error("expected unrequested layer disabled")
	}
}

func TestSortResultsBreaksTiesByMessageID(t *testing.T) {
	results := []MemoryResult{
		{MessageID: "ccc", FinalScore: 0.5},
		{MessageID: "aaa", FinalScore: 0.5},
		{MessageID: "bbb", FinalScore: 0.9},
		{MessageID: "bbb-zzz", FinalScore: 0.5},
	}

	sortResults(results)

	want := []string{"bbb", "aaa", "bbb-zzz", "ccc"}
	for i, id := range want {
		if results[i].MessageID != id {
			t.Fatalf("position %d: expected messageId %q, got %q (full order: %v)", i, id, results[i].MessageID, results)
		}
	}
}

func TestSortResultsIsOrderIndependentOfInputOrder(t *testing.T) {
	a := []MemoryResult{
		{MessageID: "m1", FinalScore: 0.3},
		{MessageID: "m2", FinalScore: 0.3},
		{MessageID: "m3", FinalScore: 0.7},
	}
	b := []MemoryResult{
		{MessageID: "m3", FinalScore: 0.7},
		{MessageID: "m2", FinalScore: 0.3},
		{MessageID: "m1", FinalScore: 0.3},
	}

	sortResults(a)
	sortResults(b)

	for i := range a {
		if a[i].MessageID != b[i].MessageID {
			t.Fatalf("position %d: expected identical ordering regardless of input order, got %q vs %q", i, a[i].MessageID, b[i].MessageID)
		}
	}
}
