package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/dalylak/internal/config"
	"github.com/kirillkom/dalylak/internal/core/nlp"
	"github.com/kirillkom/dalylak/internal/core/ports"
	"github.com/kirillkom/dalylak/internal/core/usecase"
	rediscache "github.com/kirillkom/dalylak/internal/infrastructure/cache/redis"
	"github.com/kirillkom/dalylak/internal/infrastructure/catalog"
	"github.com/kirillkom/dalylak/internal/infrastructure/embedding/hashing"
	"github.com/kirillkom/dalylak/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/dalylak/internal/infrastructure/queue/nats"
	"github.com/kirillkom/dalylak/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/dalylak/internal/infrastructure/resilience"
	"github.com/kirillkom/dalylak/internal/infrastructure/session"
	"github.com/kirillkom/dalylak/internal/infrastructure/vector/inmemory"
	"github.com/kirillkom/dalylak/internal/infrastructure/vector/qdrant"
)

// Options selects which outer dependencies a binary needs.
type Options struct {
	// Queue connects to NATS for index jobs.
	Queue bool
	// Chunks opens the chunk source so the process can index projects.
	Chunks bool
	// Observer receives turn metrics; nil disables them.
	Observer ports.TurnObserver
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Lexicon  *nlp.Lexicon
	Sessions *session.Store
	Queue    *nats.Queue

	SearchUC  *usecase.RetrievalUseCase
	TurnUC    *usecase.TurnUseCase
	IndexerUC *usecase.IndexUseCase
	CatalogUC *usecase.CatalogUseCase

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, options Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	lex, err := LoadLexicon(cfg.NLPProfilePath)
	if err != nil {
		return nil, err
	}
	app.Lexicon = lex

	var db *sql.DB
	if options.Chunks || cfg.CatalogBackend == config.CatalogBackendPostgres {
		db, err = postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.onClose(func() { _ = db.Close() })
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			app.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	catalogStore, catalogOptions, err := newCatalogStore(cfg, db)
	if err != nil {
		app.Close()
		return nil, err
	}
	catalogOptions.Logger = logger
	app.CatalogUC = usecase.NewCatalogUseCase(catalogOptions)

	var cache ports.RetrievalCache
	if cfg.RedisAddr != "" {
		redisCache, err := rediscache.New(ctx, rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RetrievalCacheTTL,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init retrieval cache: %w", err)
		}
		app.onClose(func() { _ = redisCache.Close() })
		cache = redisCache
	}

	if options.Queue {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSIndexSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilienceConfig(cfg, 0)),
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init index queue: %w", err)
		}
		app.onClose(queue.Close)
		app.Queue = queue
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		Timeout:            cfg.OllamaTimeout,
		ResilienceExecutor: resilience.NewExecutor(resilienceConfig(cfg, cfg.OllamaRateLimit)),
	})
	embedder, err := newEmbedder(cfg, ollamaClient)
	if err != nil {
		app.Close()
		return nil, err
	}
	vectorIndex, err := newVectorIndex(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Sessions = session.NewStore(session.Policy{MaxTurns: cfg.SessionMaxTurns, MaxChars: cfg.SessionMaxChars})

	reranker := nlp.NewReranker(lex, nlp.DefaultRerankWeights())
	app.SearchUC = usecase.NewRetrievalUseCase(embedder, vectorIndex, reranker, usecase.RetrievalOptions{
		OverFetchFactor: cfg.RAGOverFetchFactor,
		DefaultTopK:     cfg.RAGDefaultTopK,
		Cache:           cache,
		Logger:          logger,
	})
	app.TurnUC = usecase.NewTurnUseCase(
		lex,
		reranker,
		app.SearchUC,
		ollama.NewGenerator(ollamaClient),
		app.Sessions,
		catalogStore,
		usecase.TurnOptions{Observer: options.Observer, Logger: logger},
	)
	if db != nil {
		app.IndexerUC = usecase.NewIndexUseCase(postgres.NewChunkRepository(db), embedder, vectorIndex, usecase.IndexOptions{
			PageSize:         cfg.IndexPageSize,
			EmbedBatch:       cfg.IndexEmbedBatch,
			EmbedConcurrency: cfg.IndexEmbedConcurrency,
			Cache:            cache,
			Logger:           logger,
		})
	}

	return app, nil
}

// RunSessionEviction drops idle sessions every interval until ctx is done.
func (a *App) RunSessionEviction(ctx context.Context, interval time.Duration) {
	ttl := a.Config.SessionIdleTTL
	if ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := a.Sessions.EvictIdle(ttl); evicted > 0 {
				a.Logger.Info("sessions_evicted", "count", evicted, "remaining", a.Sessions.Len())
			}
		}
	}
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

// LoadLexicon compiles the profile at path, or the built-in profile when path is empty.
func LoadLexicon(path string) (*nlp.Lexicon, error) {
	profile := nlp.DefaultProfile()
	if path != "" {
		loaded, err := nlp.LoadProfile(path)
		if err != nil {
			return nil, fmt.Errorf("load nlp profile: %w", err)
		}
		profile = loaded
	}
	lex, err := nlp.Compile(profile)
	if err != nil {
		return nil, fmt.Errorf("compile nlp profile: %w", err)
	}
	return lex, nil
}

// newCatalogStore returns the serving catalog and the refresh options for it.
// A postgres catalog is refreshed from the xlsx sheet when a path is set.
func newCatalogStore(cfg config.Config, db *sql.DB) (ports.CatalogStore, usecase.CatalogOptions, error) {
	var (
		store   ports.CatalogStore
		options usecase.CatalogOptions
	)
	switch cfg.CatalogBackend {
	case config.CatalogBackendPostgres:
		repo := postgres.NewCatalogRepository(db)
		store = repo
		if cfg.CatalogXLSXPath != "" {
			options.Source = catalog.NewXLSXStore(cfg.CatalogXLSXPath, cfg.CatalogXLSXSheet)
			options.Writer = repo
		}
	case config.CatalogBackendXLSX:
		store = catalog.NewXLSXStore(cfg.CatalogXLSXPath, cfg.CatalogXLSXSheet)
	default:
		return nil, options, fmt.Errorf("unknown catalog backend %q", cfg.CatalogBackend)
	}
	if cfg.CatalogCacheTTL > 0 {
		cached := catalog.NewCachedStore(store, cfg.CatalogCacheTTL)
		options.Cache = cached
		store = cached
	}
	return store, options, nil
}

func newEmbedder(cfg config.Config, client *ollama.Client) (ports.Embedder, error) {
	switch cfg.EmbedBackend {
	case config.EmbedBackendOllama:
		return ollama.NewEmbedder(client, cfg.OllamaDocumentPrefix, cfg.OllamaQueryPrefix), nil
	case config.EmbedBackendHashing:
		return hashing.New(cfg.HashingEmbedDim), nil
	default:
		return nil, fmt.Errorf("unknown embed backend %q", cfg.EmbedBackend)
	}
}

func newVectorIndex(cfg config.Config) (ports.VectorIndex, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		return qdrant.NewWithOptions(cfg.QdrantURL, qdrant.Options{
			ResilienceExecutor: resilience.NewExecutor(resilienceConfig(cfg, 0)),
		}), nil
	case config.VectorBackendMemory:
		return inmemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

func resilienceConfig(cfg config.Config, ratePerSecond float64) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	out.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	out.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	out.BreakerFailureRatio = cfg.ResilienceBreakerFailureRatio
	out.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	out.RateLimitPerSecond = ratePerSecond
	return out
}
