// Command ingestion starts the text ingestion HTTP service.
//
// The service accepts new texts via POST /api/v1/texts, validates them
// against the scan alphabet, persists metadata to PostgreSQL, and publishes
// them to a Kafka topic for downstream corpus loading. Texts can be removed
// via DELETE /api/v1/texts/{id}. It provides a health endpoint at
// GET /health.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/permscan/permscan/internal/analytics/collector"
	"github.com/permscan/permscan/internal/ingestion/handler"
	"github.com/permscan/permscan/internal/ingestion/publisher"
	"github.com/permscan/permscan/internal/ingestion/validator"
	"github.com/permscan/permscan/internal/match"
	"github.com/permscan/permscan/pkg/config"
	"github.com/permscan/permscan/pkg/kafka"
	"github.com/permscan/permscan/pkg/logger"
	"github.com/permscan/permscan/pkg/middleware"
	"github.com/permscan/permscan/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	alphabet, err := match.NewAlphabet(cfg.Scan.Alphabet)
	if err != nil {
		slog.Error("invalid scan alphabet", "error", err)
		os.Exit(1)
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.TextSubmit)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.TextSubmit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ingest traffic is bursty, so ship analytics events in batches rather
	// than one produce call per submission.
	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	batchCollector := collector.NewBatchCollector(analyticsProducer, 100, 5*time.Second)
	batchCollector.Start(ctx)
	defer batchCollector.Close()

	pub := publisher.New(db, producer, cfg.Corpus.NumPartitions)
	v := validator.New(alphabet, cfg.Corpus.MaxTextBytes)
	h := handler.New(pub, v, batchCollector)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/texts", h.Submit)
	mux.HandleFunc("DELETE /api/v1/texts/{id}", h.Remove)
	mux.HandleFunc("GET /health", h.Health)

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("ingestion service stopped")
}
