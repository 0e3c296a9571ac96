package ports

import (
	"context"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

// TurnAnswerer is the inbound contract for one conversational turn.
type TurnAnswerer interface {
	AnswerTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResult, error)
}

// DocumentSearcher runs retrieval and reranking without the conversation layer.
type DocumentSearcher interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.RetrievedDocument, error)
}

// ProjectIndexer pushes a project's chunks into its vector collection.
type ProjectIndexer interface {
	IndexProject(ctx context.Context, projectID string, reset bool) (*domain.IndexReport, error)
	CollectionInfo(ctx context.Context, projectID string) (*domain.CollectionInfo, error)
	DeleteProjectIndex(ctx context.Context, projectID string) error
}

// SessionManager exposes the conversation lifecycle to adapters.
type SessionManager interface {
	GetOrCreate(id string) domain.Session
	Clear(id string) error
	Delete(id string) bool
}

// CatalogRefresher re-imports the catalog source and drops cached snapshots.
type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context) (*domain.CatalogRefreshReport, error)
}
