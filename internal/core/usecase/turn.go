package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/core/nlp"
	"github.com/kirillkom/dalylak/internal/core/ports"
)

const (
	outcomeAnswered  = "answered"
	outcomeNoAnswer  = "no_answer"
	outcomeCancelled = "cancelled"
	outcomeInvalid   = "invalid"
)

type TurnOptions struct {
	Observer ports.TurnObserver
	Logger   *slog.Logger
}

// TurnUseCase runs one conversational turn: gate, plan, retrieve, rerank,
// ground, generate, resolve and finally record the exchange.
type TurnUseCase struct {
	gate      *nlp.Gate
	planner   *nlp.Planner
	reranker  *nlp.Reranker
	resolver  *nlp.Resolver
	templates nlp.PromptTemplates

	retrieval *RetrievalUseCase
	generator ports.Generator
	sessions  ports.SessionStore
	catalog   ports.CatalogStore

	observer ports.TurnObserver
	logger   *slog.Logger
}

func NewTurnUseCase(
	lex *nlp.Lexicon,
	reranker *nlp.Reranker,
	retrieval *RetrievalUseCase,
	generator ports.Generator,
	sessions ports.SessionStore,
	catalog ports.CatalogStore,
	options TurnOptions,
) *TurnUseCase {
	if options.Observer == nil {
		options.Observer = noopObserver{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &TurnUseCase{
		gate:      nlp.NewGate(lex),
		planner:   nlp.NewPlanner(lex),
		reranker:  reranker,
		resolver:  nlp.NewResolver(lex),
		templates: lex.Prompt(),
		retrieval: retrieval,
		generator: generator,
		sessions:  sessions,
		catalog:   catalog,
		observer:  options.Observer,
		logger:    options.Logger,
	}
}

// AnswerTurn returns a result even on ErrNoAnswer so callers can inspect the
// prompt and grounding that were used. Session memory is only touched when an
// answer was produced and ctx is still live.
func (uc *TurnUseCase) AnswerTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResult, error) {
	start := time.Now()

	projectID := strings.TrimSpace(req.ProjectID)
	message := strings.TrimSpace(req.Message)
	if projectID == "" || message == "" {
		uc.observer.ObserveTurn(outcomeInvalid, time.Since(start))
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer turn", fmt.Errorf("project_id and message are required"))
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = projectID
	}

	history := uc.sessions.GetOrCreate(sessionID).Turns
	if history == nil {
		history = []domain.ChatTurn{}
	}
	result := &domain.TurnResult{
		SessionID: sessionID,
		History:   history,
		Documents: []domain.RetrievedDocument{},
		Entities:  []domain.CatalogRecord{},
	}

	decision := uc.gate.Decide(message, history)
	uc.observer.ObserveGate(decision.Search)

	var brand string
	if decision.Search {
		plan := uc.planner.Plan(message, history, req.TopK)
		result.Searched = true
		result.Query = plan.Query
		brand = plan.Brand
		result.Documents = uc.groundingDocuments(ctx, projectID, sessionID, plan)
	}

	prompt, chat := buildPrompt(uc.templates, message, result.Documents, history)
	result.Prompt = prompt

	answer, err := uc.generator.Generate(ctx, prompt, chat)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			uc.observer.ObserveTurn(outcomeCancelled, time.Since(start))
			return result, ctxErr
		}
		uc.logger.Error("turn_generation_failed", "project_id", projectID, "session_id", sessionID, "error", err)
		uc.observer.ObserveTurn(outcomeNoAnswer, time.Since(start))
		return result, domain.WrapError(domain.ErrNoAnswer, "generate answer", domain.WrapError(domain.ErrOracleUnavailable, "generation oracle", err))
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		uc.observer.ObserveTurn(outcomeNoAnswer, time.Since(start))
		return result, domain.WrapError(domain.ErrNoAnswer, "generate answer", errors.New("empty answer"))
	}

	result.Entities = uc.resolveEntities(ctx, projectID, result.Documents, brand)
	uc.observer.ObserveResolution(len(result.Entities))

	if err := ctx.Err(); err != nil {
		uc.observer.ObserveTurn(outcomeCancelled, time.Since(start))
		return result, err
	}
	if err := uc.sessions.AppendExchange(sessionID, message, answer); err != nil {
		return result, fmt.Errorf("record exchange: %w", err)
	}

	result.Answer = answer
	result.History = uc.sessions.History(sessionID)
	uc.observer.ObserveTurn(outcomeAnswered, time.Since(start))
	return result, nil
}

// groundingDocuments never fails the turn; retrieval errors degrade to an
// ungrounded prompt.
func (uc *TurnUseCase) groundingDocuments(ctx context.Context, projectID, sessionID string, plan nlp.Plan) []domain.RetrievedDocument {
	candidates, err := uc.retrieval.Retrieve(ctx, domain.CollectionName(projectID), plan.Query, plan.TopK)
	if err != nil {
		uc.observer.ObserveRetrieval(0, err)
		uc.logger.Warn("turn_retrieval_degraded",
			"project_id", projectID,
			"session_id", sessionID,
			"query", plan.Query,
			"error", err,
		)
		return []domain.RetrievedDocument{}
	}
	docs := uc.reranker.Rerank(plan.Query, candidates, plan.TopK)
	uc.observer.ObserveRetrieval(len(docs), nil)
	return docs
}

func (uc *TurnUseCase) resolveEntities(ctx context.Context, projectID string, docs []domain.RetrievedDocument, brand string) []domain.CatalogRecord {
	if len(docs) == 0 || uc.catalog == nil {
		return []domain.CatalogRecord{}
	}
	records, err := uc.catalog.ListRecords(ctx)
	if err != nil {
		uc.logger.Warn("turn_resolution_degraded", "project_id", projectID, "error", err)
		return []domain.CatalogRecord{}
	}
	return uc.resolver.Resolve(docs, records, brand)
}

type noopObserver struct{}

func (noopObserver) ObserveGate(bool) {}
func (noopObserver) ObserveRetrieval(int, error) {}
func (noopObserver) ObserveResolution(int) {}
func (noopObserver) ObserveTurn(string, time.Duration) {}
