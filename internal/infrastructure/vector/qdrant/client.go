package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu sync.Mutex
	ensured  map[string]int
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string) *Client {
	return NewWithOptions(baseURL, Options{})
}

func NewWithOptions(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
		ensured:    make(map[string]int),
	}
}

// CreateCollection creates a cosine collection of the given dimension.
// An existing collection is kept unless reset is set.
func (c *Client) CreateCollection(ctx context.Context, name string, dimension int, reset bool) error {
	if dimension <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant create collection", fmt.Errorf("dimension must be positive"))
	}
	if reset {
		if err := c.DeleteCollection(ctx, name); err != nil {
			return err
		}
	} else if c.isEnsured(name, dimension) {
		return nil
	}

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	err := c.call(ctx, "qdrant.create_collection", func(ctx context.Context) error {
		status, err := c.do(ctx, http.MethodPut, collectionPath(name), reqBody, nil, "create collection")
		// 409 when the collection already exists.
		if status == http.StatusConflict {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	c.markEnsured(name, dimension)
	return nil
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	err := c.call(ctx, "qdrant.delete_collection", func(ctx context.Context) error {
		status, err := c.do(ctx, http.MethodDelete, collectionPath(name), nil, nil, "delete collection")
		if status == http.StatusNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	c.ensureMu.Lock()
	delete(c.ensured, name)
	c.ensureMu.Unlock()
	return nil
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) Upsert(ctx context.Context, name string, points []domain.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	body := make([]point, 0, len(points))
	for _, p := range points {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		body = append(body, point{
			ID:     id,
			Vector: p.Vector,
			Payload: map[string]any{
				"text":       p.Text,
				"project_id": p.Metadata.ProjectID,
				"chunk_id":   p.Metadata.ChunkID,
				"page":       p.Metadata.Page,
				"source":     p.Metadata.Source,
				"order":      p.Metadata.Order,
			},
		})
	}

	return c.call(ctx, "qdrant.upsert", func(ctx context.Context) error {
		status, err := c.do(ctx, http.MethodPut, collectionPath(name)+"/points?wait=true", map[string]any{"points": body}, nil, "upsert")
		if status == http.StatusNotFound {
			return domain.WrapError(domain.ErrCollectionNotFound, "qdrant upsert", err)
		}
		return err
	})
}

func (c *Client) Search(ctx context.Context, name string, vector []float32, limit int) ([]domain.RetrievedDocument, error) {
	if limit <= 0 {
		return []domain.RetrievedDocument{}, nil
	}
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := c.call(ctx, "qdrant.search", func(ctx context.Context) error {
		status, err := c.do(ctx, http.MethodPost, collectionPath(name)+"/points/search", reqBody, &searchResp, "search")
		if status == http.StatusNotFound {
			return domain.WrapError(domain.ErrCollectionNotFound, "qdrant search", err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.RetrievedDocument, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.RetrievedDocument{
			Text:       getStringPayload(r.Payload, "text"),
			Score:      r.Score,
			Similarity: r.Score,
			Metadata: domain.DocumentMetadata{
				ProjectID: getStringPayload(r.Payload, "project_id"),
				ChunkID:   getStringPayload(r.Payload, "chunk_id"),
				Page:      getIntPayload(r.Payload, "page"),
				Source:    getStringPayload(r.Payload, "source"),
				Order:     getIntPayload(r.Payload, "order"),
			},
		})
	}
	return out, nil
}

// CollectionInfo returns nil without error when the collection is absent.
func (c *Client) CollectionInfo(ctx context.Context, name string) (*domain.CollectionInfo, error) {
	var infoResp struct {
		Result struct {
			Status      string `json:"status"`
			PointsCount int64  `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}

	missing := false
	err := c.call(ctx, "qdrant.collection_info", func(ctx context.Context) error {
		status, err := c.do(ctx, http.MethodGet, collectionPath(name), nil, &infoResp, "collection info")
		if status == http.StatusNotFound {
			missing = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if missing {
		return nil, nil
	}
	return &domain.CollectionInfo{
		Name:        name,
		PointsCount: infoResp.Result.PointsCount,
		VectorSize:  infoResp.Result.Config.Params.Vectors.Size,
		Distance:    infoResp.Result.Config.Params.Vectors.Distance,
		Status:      infoResp.Result.Status,
	}, nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, fn, callPolicy)
	} else {
		err = fn(ctx)
	}
	return callPolicy.Temporary(operation, err)
}

// do sends a JSON request and decodes the response into out when non-nil.
// The status code is returned alongside errors so callers can treat 404 and
// 409 as outcomes rather than failures.
func (c *Client) do(ctx context.Context, method, path string, payload any, out any, operation string) (int, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal %s body: %w", operation, err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return resp.StatusCode, &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", operation, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) isEnsured(name string, dimension int) bool {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	size, ok := c.ensured[name]
	return ok && size == dimension
}

func (c *Client) markEnsured(name string, dimension int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensured[name] = dimension
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
