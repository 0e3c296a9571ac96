package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/core/nlp"
)

var testLexicon = nlp.MustCompile(nlp.DefaultProfile())

func newTestReranker() *nlp.Reranker {
	return nlp.NewReranker(testLexicon, nlp.DefaultRerankWeights())
}

type embedderFake struct {
	mu    sync.Mutex
	err   error
	calls int
	modes []domain.EmbedMode
	dim   int
}

func (f *embedderFake) Embed(_ context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.modes = append(f.modes, mode)
	if f.err != nil {
		return nil, f.err
	}
	dim := f.dim
	if dim == 0 {
		dim = 3
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, dim)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

type indexFake struct {
	mu          sync.Mutex
	docs        []domain.RetrievedDocument
	searchErr   error
	limits      []int
	created     map[string]int
	resets      []bool
	deleted     []string
	upserted    []domain.VectorPoint
	collections []string
}

func (f *indexFake) CreateCollection(_ context.Context, name string, dimension int, reset bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created == nil {
		f.created = map[string]int{}
	}
	f.created[name] = dimension
	f.resets = append(f.resets, reset)
	return nil
}

func (f *indexFake) DeleteCollection(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *indexFake) Upsert(_ context.Context, _ string, points []domain.VectorPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, points...)
	return nil
}

func (f *indexFake) Search(_ context.Context, name string, _ []float32, limit int) ([]domain.RetrievedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	f.collections = append(f.collections, name)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := make([]domain.RetrievedDocument, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

func (f *indexFake) CollectionInfo(_ context.Context, name string) (*domain.CollectionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dim, ok := f.created[name]
	if !ok {
		return nil, nil
	}
	return &domain.CollectionInfo{Name: name, VectorSize: dim, PointsCount: int64(len(f.upserted))}, nil
}

type generatorFake struct {
	answer  string
	err     error
	hook    func(ctx context.Context)
	prompt  string
	history []domain.ChatTurn
	calls   int
}

func (f *generatorFake) Generate(ctx context.Context, prompt string, history []domain.ChatTurn) (string, error) {
	f.calls++
	f.prompt = prompt
	f.history = append([]domain.ChatTurn(nil), history...)
	if f.hook != nil {
		f.hook(ctx)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type catalogFake struct {
	records []domain.CatalogRecord
	err     error
}

func (f *catalogFake) ListRecords(context.Context) ([]domain.CatalogRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type catalogWriterFake struct {
	written []domain.CatalogRecord
	err     error
}

func (f *catalogWriterFake) UpsertRecords(_ context.Context, records []domain.CatalogRecord) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, records...)
	return nil
}

type invalidatorFake struct {
	calls int
}

func (f *invalidatorFake) Invalidate() {
	f.calls++
}

type cacheFake struct {
	entries     map[string][]domain.RetrievedDocument
	getErr      error
	invalidated []string
}

func cacheKey(collection, query string, limit int) string {
	return fmt.Sprintf("%s|%s|%d", collection, query, limit)
}

func (f *cacheFake) Get(_ context.Context, collection, query string, limit int) ([]domain.RetrievedDocument, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	docs, ok := f.entries[cacheKey(collection, query, limit)]
	return docs, ok, nil
}

func (f *cacheFake) Set(_ context.Context, collection, query string, limit int, docs []domain.RetrievedDocument) error {
	if f.entries == nil {
		f.entries = map[string][]domain.RetrievedDocument{}
	}
	f.entries[cacheKey(collection, query, limit)] = docs
	return nil
}

func (f *cacheFake) InvalidateCollection(_ context.Context, collection string) error {
	f.invalidated = append(f.invalidated, collection)
	return nil
}

type chunkSourceFake struct {
	chunks []domain.Chunk
	err    error
	pages  []int
}

func (f *chunkSourceFake) ListChunks(_ context.Context, _ string, page, pageSize int) ([]domain.Chunk, error) {
	f.pages = append(f.pages, page)
	if f.err != nil {
		return nil, f.err
	}
	start := (page - 1) * pageSize
	if start >= len(f.chunks) {
		return []domain.Chunk{}, nil
	}
	end := min(start+pageSize, len(f.chunks))
	return f.chunks[start:end], nil
}

type observerFake struct {
	gates       []bool
	retrievals  []error
	resolutions []int
	outcomes    []string
}

func (f *observerFake) ObserveGate(search bool) {
	f.gates = append(f.gates, search)
}

func (f *observerFake) ObserveRetrieval(_ int, err error) {
	f.retrievals = append(f.retrievals, err)
}

func (f *observerFake) ObserveResolution(n int) {
	f.resolutions = append(f.resolutions, n)
}

func (f *observerFake) ObserveTurn(outcome string, _ time.Duration) {
	f.outcomes = append(f.outcomes, outcome)
}

// sessionFake is a minimal single-goroutine SessionStore.
type sessionFake struct {
	turns map[string][]domain.ChatTurn
}

func newSessionFake() *sessionFake {
	return &sessionFake{turns: map[string][]domain.ChatTurn{}}
}

func (f *sessionFake) GetOrCreate(id string) domain.Session {
	if _, ok := f.turns[id]; !ok {
		f.turns[id] = nil
	}
	return domain.Session{ID: id, Turns: append([]domain.ChatTurn(nil), f.turns[id]...)}
}

func (f *sessionFake) History(id string) []domain.ChatTurn {
	return append([]domain.ChatTurn{}, f.turns[id]...)
}

func (f *sessionFake) Append(id string, role domain.Role, text string) error {
	f.turns[id] = append(f.turns[id], domain.ChatTurn{Role: role, Text: text})
	return nil
}

func (f *sessionFake) AppendExchange(id string, userText, assistantText string) error {
	f.turns[id] = append(f.turns[id],
		domain.ChatTurn{Role: domain.RoleUser, Text: userText},
		domain.ChatTurn{Role: domain.RoleAssistant, Text: assistantText},
	)
	return nil
}

func (f *sessionFake) Clear(id string) error {
	if _, ok := f.turns[id]; !ok {
		return domain.ErrSessionNotFound
	}
	f.turns[id] = nil
	return nil
}

func (f *sessionFake) Delete(id string) bool {
	_, ok := f.turns[id]
	delete(f.turns, id)
	return ok
}

var errOracleDown = errors.New("oracle down")
