package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, genModel, embedModel string) *Client {
	return NewWithOptions(baseURL, genModel, embedModel, Options{})
}

func NewWithOptions(baseURL, genModel, embedModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// HTTPStatusError and transport failures carry their own classification.
var callPolicy resilience.Policy

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, fn, callPolicy)
	} else {
		err = fn(ctx)
	}
	return callPolicy.Temporary(operation, err)
}

// Embedder calls /api/embed. Document and query texts get their own
// instruction prefix, as asymmetric embedding models expect.
type Embedder struct {
	client         *Client
	documentPrefix string
	queryPrefix    string
}

func NewEmbedder(client *Client, documentPrefix, queryPrefix string) *Embedder {
	return &Embedder{client: client, documentPrefix: documentPrefix, queryPrefix: queryPrefix}
}

func (e *Embedder) Embed(ctx context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prefix := e.documentPrefix
	if mode == domain.EmbedModeQuery {
		prefix = e.queryPrefix
	}
	input := make([]string, len(texts))
	for i, text := range texts {
		input[i] = prefix + text
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": input,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.call(ctx, "ollama.embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: expected %d vectors, got %d", len(texts), len(response.Embeddings))
	}
	return response.Embeddings, nil
}

// Generator calls /api/chat with the prior turns followed by the prompt.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (g *Generator) Generate(ctx context.Context, prompt string, history []domain.ChatTurn) (string, error) {
	messages := make([]chatMessage, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, chatMessage{Role: string(turn.Role), Content: turn.Text})
	}
	messages = append(messages, chatMessage{Role: string(domain.RoleUser), Content: prompt})

	request := map[string]any{
		"model":    g.client.genModel,
		"messages": messages,
		"stream":   false,
	}
	var response struct {
		Message chatMessage `json:"message"`
	}
	err := g.client.call(ctx, "ollama.chat", func(ctx context.Context) error {
		return g.client.postJSON(ctx, "/api/chat", request, &response, "chat")
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Message.Content), nil
}
