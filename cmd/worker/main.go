package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/dalylak/internal/bootstrap"
	"github.com/kirillkom/dalylak/internal/config"
	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/observability/logging"
	"github.com/kirillkom/dalylak/internal/observability/metrics"
)

const (
	serviceName = "worker"
	jobTimeout  = 5 * time.Minute
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{Queue: true, Chunks: true})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	indexMetrics := metrics.NewIndexMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           indexMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSIndexSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = app.Queue.SubscribeIndexRequests(ctx, func(handlerCtx context.Context, req domain.IndexRequest) error {
		jobCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		indexMetrics.StartJob()
		start := time.Now()
		report, err := app.IndexerUC.IndexProject(jobCtx, req.ProjectID, req.Reset)
		chunks := 0
		if report != nil {
			chunks = report.Chunks
		}
		indexMetrics.FinishJob(serviceName, time.Since(start), chunks, err)
		if err != nil {
			return err
		}
		logger.Info("index_job_done",
			"project_id", report.ProjectID,
			"collection", report.Collection,
			"chunks", report.Chunks,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
