package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/kirillkom/dalylak/internal/config"
	"github.com/kirillkom/dalylak/internal/core/domain"
)

type turnsFake struct {
	result *domain.TurnResult
	err    error
	got    domain.TurnRequest
}

func (f *turnsFake) AnswerTurn(_ context.Context, req domain.TurnRequest) (*domain.TurnResult, error) {
	f.got = req
	if f.result == nil && f.err == nil {
		return &domain.TurnResult{SessionID: req.SessionID, Answer: "ok"}, nil
	}
	return f.result, f.err
}

type searchFake struct {
	docs []domain.RetrievedDocument
	err  error
}

func (f *searchFake) Search(context.Context, domain.SearchRequest) ([]domain.RetrievedDocument, error) {
	return f.docs, f.err
}

type indexerFake struct {
	info    *domain.CollectionInfo
	err     error
	indexed []string
}

func (f *indexerFake) IndexProject(_ context.Context, projectID string, reset bool) (*domain.IndexReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.indexed = append(f.indexed, projectID)
	return &domain.IndexReport{ProjectID: projectID, Collection: domain.CollectionName(projectID), Chunks: 3, Reset: reset}, nil
}

func (f *indexerFake) CollectionInfo(context.Context, string) (*domain.CollectionInfo, error) {
	return f.info, f.err
}

func (f *indexerFake) DeleteProjectIndex(context.Context, string) error { return f.err }

type publisherFake struct {
	mu   sync.Mutex
	reqs []domain.IndexRequest
	err  error
}

func (f *publisherFake) PublishIndexRequest(_ context.Context, req domain.IndexRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reqs = append(f.reqs, req)
	return nil
}

type catalogRefresherFake struct {
	calls int
	err   error
}

func (f *catalogRefresherFake) RefreshCatalog(context.Context) (*domain.CatalogRefreshReport, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CatalogRefreshReport{Imported: 12, Invalidated: true}, nil
}

type sessionsFake struct {
	sessions map[string][]domain.ChatTurn
}

func newSessionsFake() *sessionsFake {
	return &sessionsFake{sessions: map[string][]domain.ChatTurn{}}
}

func (f *sessionsFake) GetOrCreate(id string) domain.Session {
	turns, ok := f.sessions[id]
	if !ok {
		f.sessions[id] = nil
	}
	return domain.Session{ID: id, Turns: turns}
}

func (f *sessionsFake) Clear(id string) error {
	if _, ok := f.sessions[id]; !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "clear session", errors.New(id))
	}
	f.sessions[id] = nil
	return nil
}

func (f *sessionsFake) Delete(id string) bool {
	if _, ok := f.sessions[id]; !ok {
		return false
	}
	delete(f.sessions, id)
	return true
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, Dependencies{
		Turns:    &turnsFake{},
		Search:   &searchFake{},
		Sessions: newSessionsFake(),
	}).Handler()
}
