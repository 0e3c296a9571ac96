package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/dalylak/internal/config"
	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/core/ports"
)

const maxBodyBytes = 1 << 20

// IndexPublisher enqueues index jobs for the worker.
type IndexPublisher interface {
	PublishIndexRequest(ctx context.Context, req domain.IndexRequest) error
}

// HTTPMetrics instruments the handler chain and serves /metrics.
type HTTPMetrics interface {
	Middleware(service string, next http.Handler) http.Handler
	Handler() http.Handler
}

// Dependencies are the inbound ports served over HTTP. Indexer, Publisher,
// Catalog and Metrics are optional.
type Dependencies struct {
	Turns     ports.TurnAnswerer
	Search    ports.DocumentSearcher
	Sessions  ports.SessionManager
	Indexer   ports.ProjectIndexer
	Publisher IndexPublisher
	Catalog   ports.CatalogRefresher
	Metrics   HTTPMetrics
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	mux.HandleFunc("POST /v1/projects/{project_id}/answer", rt.answer)
	mux.HandleFunc("POST /v1/projects/{project_id}/search", rt.search)
	mux.HandleFunc("POST /v1/projects/{project_id}/index", rt.pushIndex)
	mux.HandleFunc("GET /v1/projects/{project_id}/index", rt.indexInfo)
	mux.HandleFunc("DELETE /v1/projects/{project_id}/index", rt.deleteIndex)

	mux.HandleFunc("POST /v1/catalog/refresh", rt.refreshCatalog)

	mux.HandleFunc("GET /v1/sessions/{session_id}", rt.getSession)
	mux.HandleFunc("POST /v1/sessions/{session_id}/clear", rt.clearSession)
	mux.HandleFunc("DELETE /v1/sessions/{session_id}", rt.deleteSession)

	// Metrics wraps the mux directly so r.Pattern is visible after routing.
	var handler http.Handler = mux
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware("api", handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type answerRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	TopK      int    `json:"top_k"`
}

type answerResponse struct {
	Signal string             `json:"signal"`
	Answer *string            `json:"answer"`
	Result *domain.TurnResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	if rt.cfg.TurnTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(rt.cfg.TurnTimeoutSeconds)*time.Second)
		defer cancel()
	}

	result, err := rt.deps.Turns.AnswerTurn(ctx, domain.TurnRequest{
		ProjectID: r.PathValue("project_id"),
		SessionID: req.SessionID,
		Message:   req.Message,
		TopK:      req.TopK,
	})
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		logFailure(r, status, "answer_failed", err)
		writeJSON(w, status, answerResponse{Signal: "answer_failed", Result: result, Error: err.Error()})
		return
	}
	answer := result.Answer
	writeJSON(w, http.StatusOK, answerResponse{Signal: "answer_success", Answer: &answer, Result: result})
}

type searchRequest struct {
	Message string `json:"message"`
	TopK    int    `json:"top_k"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	docs, err := rt.deps.Search.Search(r.Context(), domain.SearchRequest{
		ProjectID: r.PathValue("project_id"),
		Message:   req.Message,
		TopK:      req.TopK,
	})
	if err != nil {
		writeDomainError(w, r, "search_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signal": "search_success", "results": docs})
}

type indexRequest struct {
	Reset bool `json:"reset"`
}

// pushIndex queues the job when a publisher is wired, otherwise runs it inline.
func (rt *Router) pushIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	projectID := strings.TrimSpace(r.PathValue("project_id"))

	if rt.deps.Publisher != nil {
		if err := rt.deps.Publisher.PublishIndexRequest(r.Context(), domain.IndexRequest{ProjectID: projectID, Reset: req.Reset}); err != nil {
			writeDomainError(w, r, "index_enqueue_failed", err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"signal": "index_queued", "project_id": projectID, "reset": req.Reset})
		return
	}
	if rt.deps.Indexer == nil {
		writeError(w, http.StatusNotImplemented, "indexing is not available on this instance")
		return
	}
	report, err := rt.deps.Indexer.IndexProject(r.Context(), projectID, req.Reset)
	if err != nil {
		writeDomainError(w, r, "index_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signal": "index_success", "report": report})
}

func (rt *Router) indexInfo(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Indexer == nil {
		writeError(w, http.StatusNotImplemented, "indexing is not available on this instance")
		return
	}
	info, err := rt.deps.Indexer.CollectionInfo(r.Context(), r.PathValue("project_id"))
	if err != nil {
		writeDomainError(w, r, "index_info_failed", err)
		return
	}
	if info == nil {
		writeError(w, http.StatusNotFound, "collection not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signal": "index_info", "collection_info": info})
}

func (rt *Router) deleteIndex(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Indexer == nil {
		writeError(w, http.StatusNotImplemented, "indexing is not available on this instance")
		return
	}
	if err := rt.deps.Indexer.DeleteProjectIndex(r.Context(), r.PathValue("project_id")); err != nil {
		writeDomainError(w, r, "index_delete_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) refreshCatalog(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Catalog == nil {
		writeError(w, http.StatusNotImplemented, "catalog refresh is not available on this instance")
		return
	}
	report, err := rt.deps.Catalog.RefreshCatalog(r.Context())
	if err != nil {
		writeDomainError(w, r, "catalog_refresh_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signal": "catalog_refreshed", "report": report})
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("session_id"))
	writeJSON(w, http.StatusOK, rt.deps.Sessions.GetOrCreate(id))
}

func (rt *Router) clearSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.deps.Sessions.Clear(strings.TrimSpace(r.PathValue("session_id"))); err != nil {
		writeDomainError(w, r, "session_clear_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !rt.deps.Sessions.Delete(strings.TrimSpace(r.PathValue("session_id"))) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeDomainError(w http.ResponseWriter, r *http.Request, event string, err error) {
	status := mapErrorToHTTPStatus(err)
	logFailure(r, status, event, err)
	writeError(w, status, err.Error())
}

func logFailure(r *http.Request, status int, event string, err error) {
	attrs := []any{"request_id", requestIDFromContext(r.Context()), "status", status, "error", err}
	if status >= http.StatusInternalServerError {
		slog.Error(event, attrs...)
		return
	}
	slog.Warn(event, attrs...)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
