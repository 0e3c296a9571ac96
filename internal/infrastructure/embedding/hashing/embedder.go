package hashing

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/core/nlp"
)

const (
	DefaultDimension = 384
	termSaturationK  = 1.2
	bigramWeight     = 0.5
)

// Embedder is a deterministic local embedding oracle. Normalized tokens and
// adjacent token pairs are feature-hashed into a fixed-size vector with
// saturated term frequency, then L2-normalized. Document and query modes
// share one transform, so identical texts embed identically.
type Embedder struct {
	dimension int
}

func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

func (e *Embedder) Dimension() int {
	return e.dimension
}

func (e *Embedder) Embed(ctx context.Context, texts []string, _ domain.EmbedMode) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, e.embed(text))
	}
	return out, nil
}

func (e *Embedder) embed(text string) []float32 {
	termFreq := make(map[uint32]float64, 32)
	tokens := nlp.Tokens(text)
	for i, token := range tokens {
		termFreq[hashToken(token)] += 1
		if i > 0 {
			termFreq[hashToken(tokens[i-1]+" "+token)] += bigramWeight
		}
	}

	vector := make([]float64, e.dimension)
	for h, tf := range termFreq {
		weight := (tf * (termSaturationK + 1.0)) / (tf + termSaturationK)
		if h&0x80000000 != 0 {
			weight = -weight
		}
		vector[int(h%uint32(e.dimension))] += weight
	}

	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	out := make([]float32, e.dimension)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vector {
		out[i] = float32(v / norm)
	}
	return out
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}
