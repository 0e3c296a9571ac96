package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/dalylak/internal/adapters/http"
	"github.com/kirillkom/dalylak/internal/bootstrap"
	"github.com/kirillkom/dalylak/internal/config"
	"github.com/kirillkom/dalylak/internal/observability/logging"
	"github.com/kirillkom/dalylak/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	pipelineMetrics := metrics.NewPipelineMetrics(serviceName, httpMetrics.Registerer())

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{
		Queue:    cfg.NATSURL != "",
		Chunks:   cfg.PostgresDSN != "",
		Observer: pipelineMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	deps := httpadapter.Dependencies{
		Turns:    app.TurnUC,
		Search:   app.SearchUC,
		Sessions: app.Sessions,
		Catalog:  app.CatalogUC,
		Metrics:  httpMetrics,
	}
	if app.IndexerUC != nil {
		deps.Indexer = app.IndexerUC
	}
	if app.Queue != nil {
		deps.Publisher = app.Queue
	}

	server := &http.Server{
		Handler:      httpadapter.NewRouter(cfg, deps).Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.TurnTimeoutSeconds+30) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Error("api_listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.APIMaxConns)
	}

	go app.RunSessionEviction(ctx, time.Minute)

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "max_conns", cfg.APIMaxConns)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
