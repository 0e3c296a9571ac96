package ports

import (
	"context"
	"time"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

// Embedder maps texts to fixed-dimension vectors. Document and query
// modes may apply different transforms but share the output space.
type Embedder interface {
	Embed(ctx context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error)
}

// Generator produces the assistant answer from a prompt and prior turns.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []domain.ChatTurn) (string, error)
}

// VectorIndex stores and searches embedded chunks per collection.
type VectorIndex interface {
	CreateCollection(ctx context.Context, name string, dimension int, reset bool) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, name string, points []domain.VectorPoint) error
	Search(ctx context.Context, name string, vector []float32, limit int) ([]domain.RetrievedDocument, error)
	CollectionInfo(ctx context.Context, name string) (*domain.CollectionInfo, error)
}

// ChunkSource pages through a project's stored chunks.
type ChunkSource interface {
	ListChunks(ctx context.Context, projectID string, page, pageSize int) ([]domain.Chunk, error)
}

// CatalogStore supplies the structured car catalog in bulk.
type CatalogStore interface {
	ListRecords(ctx context.Context) ([]domain.CatalogRecord, error)
}

// CatalogWriter replaces catalog records by id.
type CatalogWriter interface {
	UpsertRecords(ctx context.Context, records []domain.CatalogRecord) error
}

// CatalogInvalidator drops a cached catalog snapshot.
type CatalogInvalidator interface {
	Invalidate()
}

// IndexQueue publishes/consumes project index jobs.
type IndexQueue interface {
	PublishIndexRequest(ctx context.Context, req domain.IndexRequest) error
	SubscribeIndexRequests(ctx context.Context, handler func(context.Context, domain.IndexRequest) error) error
}

// RetrievalCache keeps raw over-fetched candidates per collection.
type RetrievalCache interface {
	Get(ctx context.Context, collection, query string, limit int) ([]domain.RetrievedDocument, bool, error)
	Set(ctx context.Context, collection, query string, limit int, docs []domain.RetrievedDocument) error
	InvalidateCollection(ctx context.Context, collection string) error
}

// SessionStore holds per-conversation history.
type SessionStore interface {
	GetOrCreate(id string) domain.Session
	History(id string) []domain.ChatTurn
	Append(id string, role domain.Role, text string) error
	AppendExchange(id string, userText, assistantText string) error
	Clear(id string) error
	Delete(id string) bool
}

// TurnObserver receives pipeline events for metrics.
type TurnObserver interface {
	ObserveGate(searched bool)
	ObserveRetrieval(documents int, err error)
	ObserveResolution(entities int)
	ObserveTurn(outcome string, duration time.Duration)
}
