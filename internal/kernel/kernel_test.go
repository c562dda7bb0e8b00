package kernel

import (
	"math"
	"testing"
)

func TestCosineIdentity(t *testing.T) {
	v := []float32{1, 2, 3}
	c, err := Cosine(v, v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(c)-1) > 1e-6 {
		t.Errorf("expected cosine(v,v) == 1, got %v", c)
	}
}

func TestCosineZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	c, err := Cosine(v, []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != 0 {
		t.Errorf("expected 0 for zero-norm vector, got %v", c)
	}
}

func TestCosineOpposite(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{-1, 0, 0}
	c, err := Cosine(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(c)+1) > 1e-6 {
		t.Errorf("expected cosine(v,-v) == -1, got %v", c)
	}
}

func TestCosineSymmetric(t *testing.T) {
	a := []float32{0.2, 0.9, -0.4}
	b := []float32{1, 1, 1}
	ab, _ := Cosine(a, b)
	ba, _ := Cosine(b, a)
	if ab != ba {
		t.Errorf("expected symmetry, got %v vs %v", ab, ba)
	}
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
}

func TestSerializeRoundtrip(t *testing.T) {
	v := []float32{1.5, -2.25, 0, 3.14159, 1e10}
	b := Serialize(v)
	out, err := Deserialize(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(v) {
		t.Fatalf("expected len %d, got %d", len(v), len(out))
	}
	for i := range v {
		if out[i] != v[i] {
			t.Errorf("index %d: expected %v, got %v", i, v[i], out[i])
		}
	}
}

func TestDeserializeBadLength(t *testing.T) {
	_, err := Deserialize([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for non-multiple-of-4 byte length")
	}
}

func TestHashStable(t *testing.T) {
	h1 := Hash("hello world")
	h2 := Hash("hello world")
	if h1 != h2 {
		t.Errorf("expected stable hash, got %q vs %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars (sha256), got %d", len(h1))
	}
}

func TestEstimateTokens(t *testing.T) {
	cases := map[string]uint32{
		"":        0,
		"a":       1,
		"abcd":    1,
		"abcde":   2,
		"abcdefg": 2,
	}
	for s, want := range cases {
		if got := EstimateTokens(s); got != want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", s, got, want)
		}
	}
}

func TestAverageEmbeddingEmpty(t *testing.T) {
	if _, err := AverageEmbedding(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestAverageEmbeddingMismatch(t *testing.T) {
	_, err := AverageEmbedding([][]float32{{1, 2}, {1, 2, 3}})
	if err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
}

func TestAverageEmbedding(t *testing.T) {
	vs := [][]float32{{1, 2, 3}, {3, 2, 1}}
	avg, err := AverageEmbedding(vs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float32{2, 2, 2}
	for i := range want {
		if avg[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], avg[i])
		}
	}
}

func TestNormalizeZero(t *testing.T) {
	v := []float32{0, 0, 0}
	out := Normalize(v)
	for i := range v {
		if out[i] != v[i] {
			t.Errorf("expected identity for zero vector, got %v", out)
		}
	}
}

func TestPredictionError(t *testing.T) {
	pe, err := PredictionError([]float32{1, 0}, []float32{1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(pe)) > 1e-6 {
		t.Errorf("expected 0 prediction error for identical vectors, got %v", pe)
	}
}
