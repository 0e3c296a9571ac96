package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

// ChunkRepository reads processed text chunks per project.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// ListChunks returns one page of chunks; page is 1-based.
func (r *ChunkRepository) ListChunks(ctx context.Context, projectID string, page, pageSize int) ([]domain.Chunk, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT chunk_id, chunk_text, chunk_metadata, chunk_order
FROM data_chunks
WHERE chunk_project_id = $1
ORDER BY chunk_id
LIMIT $2 OFFSET $3
`, projectID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Chunk, 0, pageSize)
	for rows.Next() {
		var (
			id          int64
			metadataRaw []byte
			chunk       = domain.Chunk{ProjectID: projectID}
		)
		if err := rows.Scan(&id, &chunk.Text, &metadataRaw, &chunk.Order); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunk.ID = strconv.FormatInt(id, 10)

		var metadata struct {
			Page   int    `json:"page"`
			Source string `json:"source"`
		}
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chunk %s metadata: %w", chunk.ID, err)
			}
		}
		chunk.Page = metadata.Page
		chunk.Source = metadata.Source
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}
