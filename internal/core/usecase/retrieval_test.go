package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/infrastructure/embedding/hashing"
	"github.com/kirillkom/dalylak/internal/infrastructure/vector/inmemory"
)

func doc(id, text string, similarity float64) domain.RetrievedDocument {
	return domain.RetrievedDocument{
		Text:       text,
		Score:      similarity,
		Similarity: similarity,
		Metadata:   domain.DocumentMetadata{ChunkID: id},
	}
}

func TestRetrieveOverFetchesInQueryMode(t *testing.T) {
	embedder := &embedderFake{}
	index := &indexFake{docs: []domain.RetrievedDocument{doc("1", "MG ZS", 0.9)}}
	uc := NewRetrievalUseCase(embedder, index, newTestReranker(), RetrievalOptions{})

	docs, err := uc.Retrieve(context.Background(), "collection_p1", "MG ZS", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	if index.limits[0] != 20 {
		t.Fatalf("expected over-fetch limit 20, got %d", index.limits[0])
	}
	if embedder.modes[0] != domain.EmbedModeQuery {
		t.Fatalf("expected query mode, got %s", embedder.modes[0])
	}
}

func TestRetrieveCustomOverFetchFactor(t *testing.T) {
	index := &indexFake{}
	uc := NewRetrievalUseCase(&embedderFake{}, index, newTestReranker(), RetrievalOptions{OverFetchFactor: 2})

	docs, err := uc.Retrieve(context.Background(), "collection_p1", "kia", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", docs)
	}
	if index.limits[0] != 6 {
		t.Fatalf("expected limit 6, got %d", index.limits[0])
	}
}

func TestRetrieveErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		embedErr error
		indexErr error
		kind     error
	}{
		{name: "embed failure", embedErr: errOracleDown, kind: domain.ErrOracleUnavailable},
		{name: "index failure", indexErr: domain.WrapError(domain.ErrTemporary, "qdrant", errOracleDown), kind: domain.ErrOracleUnavailable},
		{name: "missing collection", indexErr: domain.WrapError(domain.ErrCollectionNotFound, "search", fmt.Errorf("collection_p1")), kind: domain.ErrEmptyCorpus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewRetrievalUseCase(
				&embedderFake{err: tt.embedErr},
				&indexFake{searchErr: tt.indexErr},
				newTestReranker(),
				RetrievalOptions{},
			)
			_, err := uc.Retrieve(context.Background(), "collection_p1", "MG", 5)
			if !domain.IsKind(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestRetrieveRejectsEmptyQuery(t *testing.T) {
	uc := NewRetrievalUseCase(&embedderFake{}, &indexFake{}, newTestReranker(), RetrievalOptions{})
	if _, err := uc.Retrieve(context.Background(), "collection_p1", "  ", 5); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRetrieveServesFromCache(t *testing.T) {
	embedder := &embedderFake{}
	index := &indexFake{docs: []domain.RetrievedDocument{doc("1", "MG ZS", 0.9)}}
	cache := &cacheFake{}
	uc := NewRetrievalUseCase(embedder, index, newTestReranker(), RetrievalOptions{Cache: cache})

	for i := 0; i < 2; i++ {
		if _, err := uc.Retrieve(context.Background(), "collection_p1", "MG ZS", 5); err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
	}
	if embedder.calls != 1 || len(index.limits) != 1 {
		t.Fatalf("expected second call served from cache, embed calls=%d searches=%d", embedder.calls, len(index.limits))
	}
}

func TestRetrieveIgnoresCacheErrors(t *testing.T) {
	index := &indexFake{docs: []domain.RetrievedDocument{doc("1", "MG ZS", 0.9)}}
	uc := NewRetrievalUseCase(&embedderFake{}, index, newTestReranker(), RetrievalOptions{Cache: &cacheFake{getErr: errOracleDown}})

	docs, err := uc.Retrieve(context.Background(), "collection_p1", "MG ZS", 5)
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected fallthrough to index, got docs=%v err=%v", docs, err)
	}
}

func TestSearchReranksAndTruncates(t *testing.T) {
	index := &indexFake{docs: []domain.RetrievedDocument{
		doc("corolla", "Toyota Corolla petrol sedan", 0.82),
		doc("mg4", "MG4 Electric hatchback", 0.80),
		doc("picanto", "Kia Picanto petrol hatchback", 0.60),
	}}
	uc := NewRetrievalUseCase(&embedderFake{}, index, newTestReranker(), RetrievalOptions{})

	docs, err := uc.Search(context.Background(), domain.SearchRequest{ProjectID: "p1", Message: "عايز عربية كهربا", TopK: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].Metadata.ChunkID != "mg4" {
		t.Fatalf("expected electric candidate first, got %s", docs[0].Metadata.ChunkID)
	}
	if docs[0].Score < docs[1].Score {
		t.Fatalf("expected non-increasing scores, got %v then %v", docs[0].Score, docs[1].Score)
	}
	if index.collections[0] != "collection_p1" || index.limits[0] != 8 {
		t.Fatalf("unexpected search call collection=%s limit=%d", index.collections[0], index.limits[0])
	}
}

func TestSearchValidatesInput(t *testing.T) {
	uc := NewRetrievalUseCase(&embedderFake{}, &indexFake{}, newTestReranker(), RetrievalOptions{})
	for _, req := range []domain.SearchRequest{{Message: "MG"}, {ProjectID: "p1"}} {
		if _, err := uc.Search(context.Background(), req); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("Search(%+v) expected invalid input, got %v", req, err)
		}
	}
}

func TestIndexedChunkIsRetrievedByItsExactText(t *testing.T) {
	ctx := context.Background()
	embedder := hashing.New(256)
	index := inmemory.New()
	chunks := &chunkSourceFake{chunks: []domain.Chunk{
		{ID: "1", Text: "MG ZS 2024 Luxury petrol SUV 1,050,000 EGP"},
		{ID: "2", Text: "Kia Picanto 2024 automatic hatchback 650,000 EGP"},
		{ID: "3", Text: "BYD Atto 3 electric SUV 1,600,000 EGP"},
		{ID: "4", Text: "تويوتا كورولا 2024 بنزين سيدان"},
	}}

	indexer := NewIndexUseCase(chunks, embedder, index, IndexOptions{PageSize: 3, EmbedBatch: 2})
	if _, err := indexer.IndexProject(ctx, "p1", true); err != nil {
		t.Fatalf("IndexProject() error = %v", err)
	}

	retrieval := NewRetrievalUseCase(embedder, index, newTestReranker(), RetrievalOptions{OverFetchFactor: 1})
	for _, chunk := range chunks.chunks {
		docs, err := retrieval.Retrieve(ctx, domain.CollectionName("p1"), chunk.Text, 1)
		if err != nil {
			t.Fatalf("Retrieve(%q) error = %v", chunk.Text, err)
		}
		if len(docs) != 1 || docs[0].Metadata.ChunkID != chunk.ID {
			t.Fatalf("chunk %s should be the nearest candidate for its own text, got %+v", chunk.ID, docs)
		}
	}
}
