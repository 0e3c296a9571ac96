package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

func makeChunks(n int) []domain.Chunk {
	out := make([]domain.Chunk, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.Chunk{ID: fmt.Sprint(i), Text: fmt.Sprintf("chunk text %d", i), Page: i, Source: "cars.pdf", Order: i})
	}
	return out
}

func TestIndexProjectPagesEmbedsAndUpserts(t *testing.T) {
	chunks := &chunkSourceFake{chunks: makeChunks(7)}
	embedder := &embedderFake{dim: 4}
	index := &indexFake{}
	cache := &cacheFake{}
	uc := NewIndexUseCase(chunks, embedder, index, IndexOptions{PageSize: 3, EmbedBatch: 2, EmbedConcurrency: 3, Cache: cache})

	report, err := uc.IndexProject(context.Background(), " p1 ", true)
	if err != nil {
		t.Fatalf("IndexProject() error = %v", err)
	}
	if report.Chunks != 7 || report.Collection != "collection_p1" || !report.Reset {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(chunks.pages) != 3 {
		t.Fatalf("expected 3 pages read, got %v", chunks.pages)
	}
	if index.created["collection_p1"] != 4 || len(index.resets) != 1 || !index.resets[0] {
		t.Fatalf("expected one reset create with dim 4, got created=%v resets=%v", index.created, index.resets)
	}
	if len(index.upserted) != 7 {
		t.Fatalf("expected 7 points, got %d", len(index.upserted))
	}
	for i, point := range index.upserted {
		want := makeChunks(7)[i]
		if point.Metadata.ChunkID != want.ID || point.Text != want.Text || point.Metadata.ProjectID != "p1" {
			t.Fatalf("point %d out of order: %+v", i, point)
		}
		if point.ID != PointID("p1", want.ID) {
			t.Fatalf("point %d has non-deterministic id %s", i, point.ID)
		}
	}
	for _, mode := range embedder.modes {
		if mode != domain.EmbedModeDocument {
			t.Fatalf("expected document mode, got %s", mode)
		}
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "collection_p1" {
		t.Fatalf("expected cache invalidation, got %v", cache.invalidated)
	}
}

func TestIndexProjectEmptyCorpus(t *testing.T) {
	index := &indexFake{}
	uc := NewIndexUseCase(&chunkSourceFake{}, &embedderFake{}, index, IndexOptions{})

	_, err := uc.IndexProject(context.Background(), "p1", true)
	if !domain.IsKind(err, domain.ErrEmptyCorpus) {
		t.Fatalf("expected empty corpus, got %v", err)
	}
	if len(index.deleted) != 1 {
		t.Fatalf("expected reset to drop the stale collection, got %v", index.deleted)
	}
}

func TestIndexProjectEmbedFailure(t *testing.T) {
	index := &indexFake{}
	uc := NewIndexUseCase(&chunkSourceFake{chunks: makeChunks(3)}, &embedderFake{err: errOracleDown}, index, IndexOptions{EmbedBatch: 1})

	_, err := uc.IndexProject(context.Background(), "p1", false)
	if !domain.IsKind(err, domain.ErrOracleUnavailable) {
		t.Fatalf("expected oracle unavailable, got %v", err)
	}
	if len(index.upserted) != 0 || len(index.created) != 0 {
		t.Fatalf("expected nothing written on embed failure")
	}
}

func TestIndexProjectRequiresProject(t *testing.T) {
	uc := NewIndexUseCase(&chunkSourceFake{}, &embedderFake{}, &indexFake{}, IndexOptions{})
	if _, err := uc.IndexProject(context.Background(), "", false); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := uc.CollectionInfo(context.Background(), " "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := uc.DeleteProjectIndex(context.Background(), ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCollectionInfoAndDelete(t *testing.T) {
	index := &indexFake{}
	cache := &cacheFake{}
	uc := NewIndexUseCase(&chunkSourceFake{chunks: makeChunks(2)}, &embedderFake{dim: 8}, index, IndexOptions{Cache: cache})

	info, err := uc.CollectionInfo(context.Background(), "p1")
	if err != nil || info != nil {
		t.Fatalf("expected nil info before indexing, got %+v err=%v", info, err)
	}
	if _, err := uc.IndexProject(context.Background(), "p1", false); err != nil {
		t.Fatalf("IndexProject() error = %v", err)
	}
	info, err = uc.CollectionInfo(context.Background(), "p1")
	if err != nil || info == nil || info.VectorSize != 8 || info.PointsCount != 2 {
		t.Fatalf("unexpected info %+v err=%v", info, err)
	}
	if err := uc.DeleteProjectIndex(context.Background(), "p1"); err != nil {
		t.Fatalf("DeleteProjectIndex() error = %v", err)
	}
	if len(index.deleted) != 1 || len(cache.invalidated) != 2 {
		t.Fatalf("expected delete + invalidation, deleted=%v invalidated=%v", index.deleted, cache.invalidated)
	}
}

func TestPointIDIsStable(t *testing.T) {
	if PointID("p1", "7") != PointID("p1", "7") {
		t.Fatalf("expected deterministic id")
	}
	if PointID("p1", "7") == PointID("p2", "7") {
		t.Fatalf("expected project to scope the id")
	}
}
