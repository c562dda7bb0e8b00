// Package kernel provides the similarity kernel: pure, stateless vector
// math, embedding serialization, content hashing, and token estimation
// shared by every memory layer that deals in embeddings.
package kernel

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// Cosine computes cosine similarity in [-1, 1]. Returns 0 if either vector
// has zero norm. Fails (InvariantViolation) if the vectors have mismatched
// length — callers performing search-time comparisons should check lengths
// themselves and skip rather than propagate this.
func Cosine(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, m3aerrors.InvariantViolation("cosine: mismatched vector dimensions").
			WithContext("lenA", len(a)).WithContext("lenB", len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// Euclidean computes Euclidean distance, always >= 0.
func Euclidean(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, m3aerrors.InvariantViolation("euclidean: mismatched vector dimensions")
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum)), nil
}

// Dot computes the dot product.
func Dot(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, m3aerrors.InvariantViolation("dot: mismatched vector dimensions")
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum), nil
}

// Normalize returns a unit-length copy of v, or a copy of v unchanged if
// its norm is 0.
func Normalize(v []float32) []float32 {
	var normSq float64
	for _, x := range v {
		normSq += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if normSq == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(normSq)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Serialize packs v as little-endian IEEE-754 32-bit floats. This is a
// stable on-disk format and must never change.
func Serialize(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

// Deserialize is the exact inverse of Serialize.
func Deserialize(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, m3aerrors.InvariantViolation("deserialize: byte length not a multiple of 4").
			WithContext("len", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// Hash returns the lowercase hex SHA-256 digest of content, used as the
// embedding-cache dedup key.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// EstimateTokens approximates a token count as ceil(len(s)/4).
func EstimateTokens(s string) uint32 {
	if len(s) == 0 {
		return 0
	}
	return uint32((len(s) + 3) / 4)
}

// PredictionError is 1 - cosine(predicted, actual).
func PredictionError(predicted, actual []float32) (float32, error) {
	c, err := Cosine(predicted, actual)
	if err != nil {
		return 0, err
	}
	return 1 - c, nil
}

// AverageEmbedding computes the element-wise mean of vs. Fails on empty
// input or mismatched dimensions across vs.
func AverageEmbedding(vs [][]float32) ([]float32, error) {
	if len(vs) == 0 {
		return nil, m3aerrors.InvariantViolation("averageEmbedding: empty input")
	}
	dim := len(vs[0])
	sum := make([]float64, dim)
	for _, v := range vs {
		if len(v) != dim {
			return nil, m3aerrors.InvariantViolation("averageEmbedding: mismatched dimensions")
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, dim)
	n := float64(len(vs))
	for i, s := range sum {
		out[i] = float32(s / n)
	}
	return out, nil
}
