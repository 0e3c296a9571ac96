package domain

import "strings"

// DocumentMetadata is the payload stored next to every indexed chunk.
type DocumentMetadata struct {
	ProjectID string `json:"project_id,omitempty"`
	ChunkID   string `json:"chunk_id,omitempty"`
	Page      int    `json:"page,omitempty"`
	Source    string `json:"source,omitempty"`
	Order     int    `json:"order,omitempty"`
}

// RetrievedDocument is one candidate returned by the vector index.
// Similarity keeps the raw index score; Score is overwritten by reranking.
type RetrievedDocument struct {
	Text       string           `json:"text"`
	Score      float64          `json:"score"`
	Similarity float64          `json:"similarity"`
	Metadata   DocumentMetadata `json:"metadata"`
}

// Chunk is a unit of source text read from the chunk source for indexing.
type Chunk struct {
	ID        string
	ProjectID string
	Text      string
	Page      int
	Source    string
	Order     int
}

type VectorPoint struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata DocumentMetadata
}

type EmbedMode string

const (
	EmbedModeDocument EmbedMode = "document"
	EmbedModeQuery    EmbedMode = "query"
)

type CollectionInfo struct {
	Name        string `json:"name"`
	PointsCount int64  `json:"points_count"`
	VectorSize  int    `json:"vector_size"`
	Distance    string `json:"distance"`
	Status      string `json:"status"`
}

type IndexReport struct {
	ProjectID  string `json:"project_id"`
	Collection string `json:"collection"`
	Chunks     int    `json:"chunks"`
	Reset      bool   `json:"reset"`
}

// IndexRequest is the queued form of a project indexing job.
type IndexRequest struct {
	ProjectID string `json:"project_id"`
	Reset     bool   `json:"reset"`
}

const collectionPrefix = "collection_"

// CollectionName maps a project id to its vector collection.
func CollectionName(projectID string) string {
	return collectionPrefix + strings.TrimSpace(projectID)
}
