package corpus

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// Embedder turns span or query text into a fixed-width vector. Implementations
// live in the provider subpackages; the store treats a nil Embedder as
// "keyword search only".
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EncodeEmbedding packs a vector into the little-endian blob stored in the
// spans table. A nil vector encodes to nil so unembedded spans stay NULL.
func EncodeEmbedding(vec []float32) []byte {
	if vec == nil {
		return nil
	}
	blob := make([]byte, 0, len(vec)*4)
	for _, v := range vec {
		blob = binary.LittleEndian.AppendUint32(blob, math.Float32bits(v))
	}
	return blob
}

// DecodeEmbedding is the inverse of EncodeEmbedding.
func DecodeEmbedding(blob []byte) ([]float32, error) {
	if blob == nil {
		return nil, nil
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, 0, len(blob)/4)
	for off := 0; off < len(blob); off += 4 {
		vec = append(vec, math.Float32frombits(binary.LittleEndian.Uint32(blob[off:])))
	}
	return vec, nil
}

// CosineSimilarity compares two vectors. Mismatched or empty inputs score 0,
// which lets callers treat "no embedding" as "no similarity signal".
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
