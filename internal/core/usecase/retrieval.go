package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/core/nlp"
	"github.com/kirillkom/dalylak/internal/core/ports"
)

const (
	defaultOverFetchFactor = 4
	defaultSearchTopK      = 5
)

type RetrievalOptions struct {
	OverFetchFactor int
	DefaultTopK     int
	Cache           ports.RetrievalCache
	Logger          *slog.Logger
}

// RetrievalUseCase embeds a query and fetches raw candidates from the
// project's collection, over-fetching so the reranker has headroom.
type RetrievalUseCase struct {
	embedder    ports.Embedder
	index       ports.VectorIndex
	reranker    *nlp.Reranker
	cache       ports.RetrievalCache
	overFetch   int
	defaultTopK int
	logger      *slog.Logger
}

func NewRetrievalUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	reranker *nlp.Reranker,
	options RetrievalOptions,
) *RetrievalUseCase {
	if options.OverFetchFactor <= 0 {
		options.OverFetchFactor = defaultOverFetchFactor
	}
	if options.DefaultTopK <= 0 {
		options.DefaultTopK = defaultSearchTopK
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &RetrievalUseCase{
		embedder:    embedder,
		index:       index,
		reranker:    reranker,
		cache:       options.Cache,
		overFetch:   options.OverFetchFactor,
		defaultTopK: options.DefaultTopK,
		logger:      options.Logger,
	}
}

// Retrieve returns up to limit*overFetch raw candidates in index order.
// A missing collection is ErrEmptyCorpus; oracle failures are ErrOracleUnavailable.
func (uc *RetrievalUseCase) Retrieve(ctx context.Context, collection, query string, limit int) ([]domain.RetrievedDocument, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("query is required"))
	}
	if limit <= 0 {
		limit = uc.defaultTopK
	}
	fetch := limit * uc.overFetch

	if docs, ok := uc.cachedCandidates(ctx, collection, query, fetch); ok {
		return docs, nil
	}

	vectors, err := uc.embedder.Embed(ctx, []string{query}, domain.EmbedModeQuery)
	if err != nil {
		return nil, domain.WrapError(domain.ErrOracleUnavailable, "embed query", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, domain.WrapError(domain.ErrOracleUnavailable, "embed query", fmt.Errorf("expected 1 vector, got %d", len(vectors)))
	}

	docs, err := uc.index.Search(ctx, collection, vectors[0], fetch)
	if err != nil {
		if domain.IsKind(err, domain.ErrCollectionNotFound) {
			return nil, domain.WrapError(domain.ErrEmptyCorpus, "search vector index", err)
		}
		return nil, domain.WrapError(domain.ErrOracleUnavailable, "search vector index", err)
	}
	if docs == nil {
		docs = []domain.RetrievedDocument{}
	}

	if uc.cache != nil && len(docs) > 0 {
		if err := uc.cache.Set(ctx, collection, query, fetch, docs); err != nil {
			uc.logger.Warn("retrieval_cache_set_failed", "collection", collection, "error", err)
		}
	}
	return docs, nil
}

func (uc *RetrievalUseCase) cachedCandidates(ctx context.Context, collection, query string, fetch int) ([]domain.RetrievedDocument, bool) {
	if uc.cache == nil {
		return nil, false
	}
	docs, ok, err := uc.cache.Get(ctx, collection, query, fetch)
	if err != nil {
		uc.logger.Warn("retrieval_cache_get_failed", "collection", collection, "error", err)
		return nil, false
	}
	return docs, ok
}

// Search retrieves and reranks without touching any session.
func (uc *RetrievalUseCase) Search(ctx context.Context, req domain.SearchRequest) ([]domain.RetrievedDocument, error) {
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("project_id is required"))
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("message is required"))
	}
	topK := req.TopK
	if topK <= 0 {
		topK = uc.defaultTopK
	}

	candidates, err := uc.Retrieve(ctx, domain.CollectionName(projectID), message, topK)
	if err != nil {
		return nil, err
	}
	return uc.reranker.Rerank(message, candidates, topK), nil
}
