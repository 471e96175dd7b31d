package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/emontoro/finance-ai-assistant/internal/bootstrap"
	"github.com/emontoro/finance-ai-assistant/internal/config"
	"github.com/emontoro/finance-ai-assistant/internal/observability/logging"
	"github.com/emontoro/finance-ai-assistant/internal/observability/metrics"
)

const serviceName = "finance-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics, logger)

	runRecurringPass := func(passCtx context.Context) error {
		processed, terminated, err := app.Scheduler.ProcessDueItems(passCtx)
		workerMetrics.FinishRecurringRun(serviceName, processed, terminated, err)
		if err != nil {
			logger.Error("recurring pass failed", "error", err)
			return err
		}
		logger.Info("recurring pass complete", "processed", processed, "terminated", terminated)
		return nil
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("worker subscribed", "subject", cfg.NATSDocumentsSubject)
		err := app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
			processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
			defer cancel()

			workerMetrics.StartDocument()
			start := time.Now()
			processErr := app.Processor.ProcessByID(processCtx, documentID)
			workerMetrics.FinishDocument(serviceName, time.Since(start), processErr)
			if processErr != nil {
				logger.Error("document processing failed", "document_id", documentID, "error", processErr)
			}
			return processErr
		})
		if err != nil {
			logger.Error("document subscription ended", "error", err)
			stop()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("worker subscribed", "subject", cfg.NATSRecurringSubject)
		err := app.Queue.SubscribeRecurringRun(ctx, runRecurringPass)
		if err != nil {
			logger.Error("recurring subscription ended", "error", err)
			stop()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		interval := time.Duration(cfg.RecurringIntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = time.Hour
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = runRecurringPass(ctx)
			}
		}
	}()

	<-ctx.Done()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
}

func startMetricsServer(port string, m *metrics.WorkerMetrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		logger.Info("worker metrics listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err)
		}
	}()

	return server
}
