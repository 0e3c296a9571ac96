package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/dalylak/internal/config"
	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/infrastructure/catalog"
)

func TestResilienceConfigCarriesKnobs(t *testing.T) {
	cfg := config.Config{
		ResilienceRetryMaxAttempts:    5,
		ResilienceRetryInitialBackoff: 50 * time.Millisecond,
		ResilienceRetryMaxBackoff:     time.Second,
		ResilienceBreakerEnabled:      true,
		ResilienceBreakerMinRequests:  4,
		ResilienceBreakerFailureRatio: 0.25,
		ResilienceBreakerOpenTimeout:  time.Minute,
	}
	out := resilienceConfig(cfg, 3)
	if out.RetryMaxAttempts != 5 || out.BreakerMinRequests != 4 || out.RateLimitPerSecond != 3 {
		t.Fatalf("unexpected resilience config %+v", out)
	}
}

func TestNewWithLocalBackends(t *testing.T) {
	cfg := config.Config{
		EmbedBackend:    config.EmbedBackendHashing,
		HashingEmbedDim: 64,
		VectorBackend:   config.VectorBackendMemory,
		CatalogBackend:  config.CatalogBackendXLSX,
		CatalogXLSXPath: filepath.Join(t.TempDir(), "catalog.xlsx"),
		CatalogCacheTTL: time.Minute,
		SessionMaxTurns: 4,
	}

	app, err := New(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.IndexerUC != nil {
		t.Fatalf("indexer requires a chunk source")
	}
	if app.Queue != nil {
		t.Fatalf("queue should not be connected unless requested")
	}

	docs, err := app.SearchUC.Search(context.Background(), domain.SearchRequest{ProjectID: "p1", Message: "MG ZS"})
	if !domain.IsKind(err, domain.ErrEmptyCorpus) {
		t.Fatalf("expected empty corpus for an unindexed project, got docs=%v err=%v", docs, err)
	}
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	base := config.Config{
		EmbedBackend:   config.EmbedBackendHashing,
		VectorBackend:  config.VectorBackendMemory,
		CatalogBackend: config.CatalogBackendXLSX,
	}
	for _, mutate := range []func(*config.Config){
		func(c *config.Config) { c.EmbedBackend = "openai" },
		func(c *config.Config) { c.VectorBackend = "milvus" },
		func(c *config.Config) { c.CatalogBackend = "csv" },
	} {
		cfg := base
		mutate(&cfg)
		if _, err := New(context.Background(), cfg, nil, Options{}); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestLoadLexiconFromProfileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("greetings: [\"yo\"]\n"), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	if _, err := LoadLexicon(path); err != nil {
		t.Fatalf("LoadLexicon() error = %v", err)
	}
	if _, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing profile")
	}
}

func TestCatalogStoreIsCached(t *testing.T) {
	store, options, err := newCatalogStore(config.Config{CatalogBackend: config.CatalogBackendXLSX, CatalogCacheTTL: time.Minute}, nil)
	if err != nil {
		t.Fatalf("newCatalogStore() error = %v", err)
	}
	if _, ok := store.(*catalog.CachedStore); !ok {
		t.Fatalf("expected cached store, got %T", store)
	}
	if options.Cache == nil {
		t.Fatalf("refresh must be able to invalidate the cached store")
	}
	if options.Source != nil || options.Writer != nil {
		t.Fatalf("an xlsx catalog has nothing to import into")
	}
}

func TestPostgresCatalogImportsFromSheet(t *testing.T) {
	cfg := config.Config{CatalogBackend: config.CatalogBackendPostgres, CatalogXLSXPath: "catalog.xlsx"}
	_, options, err := newCatalogStore(cfg, nil)
	if err != nil {
		t.Fatalf("newCatalogStore() error = %v", err)
	}
	if options.Source == nil || options.Writer == nil {
		t.Fatalf("expected sheet source and postgres writer, got %+v", options)
	}
	if options.Cache != nil {
		t.Fatalf("no cache without a ttl")
	}
}
