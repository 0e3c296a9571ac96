package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/core/ports"
)

// pointNamespace scopes deterministic vector point ids.
var pointNamespace = uuid.MustParse("6f1c2b8e-3f4a-5d7e-9a21-0c4b6e8d2f13")

type IndexOptions struct {
	PageSize         int
	EmbedBatch       int
	EmbedConcurrency int
	Cache            ports.RetrievalCache
	Logger           *slog.Logger
}

// IndexUseCase pushes a project's chunks into its vector collection.
type IndexUseCase struct {
	chunks   ports.ChunkSource
	embedder ports.Embedder
	index    ports.VectorIndex
	cache    ports.RetrievalCache
	opts     IndexOptions
	logger   *slog.Logger
}

func NewIndexUseCase(
	chunks ports.ChunkSource,
	embedder ports.Embedder,
	index ports.VectorIndex,
	options IndexOptions,
) *IndexUseCase {
	if options.PageSize <= 0 {
		options.PageSize = 50
	}
	if options.EmbedBatch <= 0 {
		options.EmbedBatch = 16
	}
	if options.EmbedConcurrency <= 0 {
		options.EmbedConcurrency = 2
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &IndexUseCase{
		chunks:   chunks,
		embedder: embedder,
		index:    index,
		cache:    options.Cache,
		opts:     options,
		logger:   options.Logger,
	}
}

func (uc *IndexUseCase) IndexProject(ctx context.Context, projectID string, reset bool) (*domain.IndexReport, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "index project", fmt.Errorf("project_id is required"))
	}
	collection := domain.CollectionName(projectID)
	report := &domain.IndexReport{ProjectID: projectID, Collection: collection, Reset: reset}

	created := false
	for page := 1; ; page++ {
		chunks, err := uc.chunks.ListChunks(ctx, projectID, page, uc.opts.PageSize)
		if err != nil {
			return report, fmt.Errorf("list chunks page %d: %w", page, err)
		}
		if len(chunks) == 0 {
			break
		}

		vectors, err := uc.embedChunks(ctx, chunks)
		if err != nil {
			return report, err
		}
		if !created {
			if err := uc.index.CreateCollection(ctx, collection, len(vectors[0]), reset); err != nil {
				return report, fmt.Errorf("create collection: %w", err)
			}
			created = true
		}
		if err := uc.index.Upsert(ctx, collection, toPoints(projectID, chunks, vectors)); err != nil {
			return report, fmt.Errorf("upsert page %d: %w", page, err)
		}
		report.Chunks += len(chunks)

		if len(chunks) < uc.opts.PageSize {
			break
		}
	}

	if report.Chunks == 0 {
		if reset {
			if err := uc.index.DeleteCollection(ctx, collection); err != nil {
				return report, fmt.Errorf("delete collection: %w", err)
			}
			uc.invalidateCache(ctx, collection)
		}
		return report, domain.WrapError(domain.ErrEmptyCorpus, "index project", fmt.Errorf("project %s has no chunks", projectID))
	}

	uc.invalidateCache(ctx, collection)
	uc.logger.Info("project_indexed", "project_id", projectID, "collection", collection, "chunks", report.Chunks, "reset", reset)
	return report, nil
}

// embedChunks embeds batches concurrently and keeps chunk order.
func (uc *IndexUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.opts.EmbedConcurrency)
	for start := 0; start < len(chunks); start += uc.opts.EmbedBatch {
		end := min(start+uc.opts.EmbedBatch, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, chunk := range chunks[start:end] {
				texts = append(texts, chunk.Text)
			}
			batch, err := uc.embedder.Embed(gctx, texts, domain.EmbedModeDocument)
			if err != nil {
				return domain.WrapError(domain.ErrOracleUnavailable, "embed chunks", err)
			}
			if len(batch) != len(texts) {
				return domain.WrapError(domain.ErrOracleUnavailable, "embed chunks", fmt.Errorf("vectors/chunks mismatch: %d/%d", len(batch), len(texts)))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, domain.WrapError(domain.ErrOracleUnavailable, "embed chunks", fmt.Errorf("empty embedding"))
	}
	for i, vector := range vectors {
		if len(vector) != dim {
			return nil, domain.WrapError(domain.ErrOracleUnavailable, "embed chunks", fmt.Errorf("chunk %d has dimension %d, want %d", i, len(vector), dim))
		}
	}
	return vectors, nil
}

func toPoints(projectID string, chunks []domain.Chunk, vectors [][]float32) []domain.VectorPoint {
	points := make([]domain.VectorPoint, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, domain.VectorPoint{
			ID:     PointID(projectID, chunk.ID),
			Vector: vectors[i],
			Text:   chunk.Text,
			Metadata: domain.DocumentMetadata{
				ProjectID: projectID,
				ChunkID:   chunk.ID,
				Page:      chunk.Page,
				Source:    chunk.Source,
				Order:     chunk.Order,
			},
		})
	}
	return points
}

// PointID is stable per (project, chunk) so re-indexing overwrites in place.
func PointID(projectID, chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(projectID+"/"+chunkID)).String()
}

func (uc *IndexUseCase) invalidateCache(ctx context.Context, collection string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.InvalidateCollection(ctx, collection); err != nil {
		uc.logger.Warn("retrieval_cache_invalidate_failed", "collection", collection, "error", err)
	}
}

func (uc *IndexUseCase) CollectionInfo(ctx context.Context, projectID string) (*domain.CollectionInfo, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "collection info", fmt.Errorf("project_id is required"))
	}
	info, err := uc.index.CollectionInfo(ctx, domain.CollectionName(projectID))
	if err != nil {
		return nil, fmt.Errorf("collection info: %w", err)
	}
	return info, nil
}

func (uc *IndexUseCase) DeleteProjectIndex(ctx context.Context, projectID string) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "delete project index", fmt.Errorf("project_id is required"))
	}
	collection := domain.CollectionName(projectID)
	if err := uc.index.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	uc.invalidateCache(ctx, collection)
	return nil
}
