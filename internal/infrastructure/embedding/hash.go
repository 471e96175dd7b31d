// Package embedding provides a deterministic, dependency-free Embedder.
// Vectors are derived from a SHA-256 based keystream over the input text,
// so identical text always embeds identically and similar deployments can
// run without a remote embedding service. Swap in a real model behind the
// same port for production-quality semantic search.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

const DefaultDimension = 1536

type HashEmbedder struct {
	dimension int
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &HashEmbedder{dimension: dimension}
}

func (e *HashEmbedder) Dimension() int { return e.dimension }

func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

// vector expands the text digest into a unit-length vector. Each block of
// the keystream is the digest of the seed plus a block counter; components
// are mapped into [-1, 1] before normalization.
func (e *HashEmbedder) vector(text string) []float32 {
	seed := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))

	vec := make([]float32, e.dimension)
	var block [sha256.Size + 8]byte
	copy(block[:], seed[:])

	var sumSquares float64
	for i := 0; i < e.dimension; i += sha256.Size / 4 {
		binary.BigEndian.PutUint64(block[sha256.Size:], uint64(i))
		digest := sha256.Sum256(block[:])
		for j := 0; j < sha256.Size/4 && i+j < e.dimension; j++ {
			raw := binary.BigEndian.Uint32(digest[j*4:])
			v := float64(raw)/float64(math.MaxUint32)*2 - 1
			vec[i+j] = float32(v)
			sumSquares += v * v
		}
	}

	if sumSquares > 0 {
		norm := float32(1 / math.Sqrt(sumSquares))
		for i := range vec {
			vec[i] *= norm
		}
	}
	return vec
}
