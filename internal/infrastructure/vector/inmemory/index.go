package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

type collection struct {
	dimension int
	points    []domain.VectorPoint
	byID      map[string]int
}

// Index is an in-process cosine vector index with the same contract as
// the Qdrant client. Used for local runs and tests.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func New() *Index {
	return &Index{collections: make(map[string]*collection)}
}

func (x *Index) CreateCollection(_ context.Context, name string, dimension int, reset bool) error {
	if dimension <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "create collection", fmt.Errorf("dimension must be positive"))
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.collections[name]; ok && !reset {
		return nil
	}
	x.collections[name] = &collection{dimension: dimension, byID: make(map[string]int)}
	return nil
}

func (x *Index) DeleteCollection(_ context.Context, name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.collections, name)
	return nil
}

func (x *Index) Upsert(_ context.Context, name string, points []domain.VectorPoint) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	c, ok := x.collections[name]
	if !ok {
		return domain.WrapError(domain.ErrCollectionNotFound, "upsert", fmt.Errorf("collection %q", name))
	}
	for _, p := range points {
		if len(p.Vector) != c.dimension {
			return domain.WrapError(domain.ErrInvalidInput, "upsert",
				fmt.Errorf("vector dimension %d, collection expects %d", len(p.Vector), c.dimension))
		}
		stored := p
		stored.Vector = append([]float32(nil), p.Vector...)
		if idx, exists := c.byID[p.ID]; exists && p.ID != "" {
			c.points[idx] = stored
			continue
		}
		c.byID[p.ID] = len(c.points)
		c.points = append(c.points, stored)
	}
	return nil
}

// Search ranks by cosine similarity; ties keep insertion order.
func (x *Index) Search(_ context.Context, name string, vector []float32, limit int) ([]domain.RetrievedDocument, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	c, ok := x.collections[name]
	if !ok {
		return nil, domain.WrapError(domain.ErrCollectionNotFound, "search", fmt.Errorf("collection %q", name))
	}
	if limit <= 0 {
		return []domain.RetrievedDocument{}, nil
	}

	out := make([]domain.RetrievedDocument, 0, len(c.points))
	for _, p := range c.points {
		score := cosineSimilarity(vector, p.Vector)
		out = append(out, domain.RetrievedDocument{
			Text:       p.Text,
			Score:      score,
			Similarity: score,
			Metadata:   p.Metadata,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (x *Index) CollectionInfo(_ context.Context, name string) (*domain.CollectionInfo, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	c, ok := x.collections[name]
	if !ok {
		return nil, nil
	}
	return &domain.CollectionInfo{
		Name:        name,
		PointsCount: int64(len(c.points)),
		VectorSize:  c.dimension,
		Distance:    "Cosine",
		Status:      "green",
	}, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
