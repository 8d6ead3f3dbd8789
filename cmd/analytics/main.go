// Command analytics starts the standalone analytics aggregation service.
//
// It consumes scan-analytics events from Kafka, aggregates them in memory
// (total scans, latency percentiles, cache hit rate, top patterns, zero-match
// patterns), periodically persists snapshots to PostgreSQL, and exposes an
// HTTP API at GET /api/v1/analytics/stats for dashboards.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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

	"github.com/permscan/permscan/internal/analytics"
	"github.com/permscan/permscan/internal/analytics/aggregator"
	"github.com/permscan/permscan/pkg/config"
	"github.com/permscan/permscan/pkg/health"
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
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The consumer needs the aggregator's handler and the aggregator needs
	// the consumer; resolve the cycle with a late-bound handler. Messages
	// only flow after agg.Start, by which point agg is set.
	var agg *analytics.Aggregator
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents,
		func(ctx context.Context, key, value []byte) error {
			return analytics.HandleEvent(agg)(ctx, key, value)
		})
	agg = analytics.NewAggregator(consumer)

	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	// Snapshot persistence is optional: without PostgreSQL the service still
	// serves in-memory stats.
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshot persistence disabled", "error", err)
	} else {
		defer db.Close()
		store := aggregator.NewStore(db)
		store.StartPeriodicSave(ctx, agg, cfg.Corpus.SnapshotInterval)
	}

	analyticsHandler := analytics.NewHandler(agg)

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics/stats", analyticsHandler.Stats)
	mux.HandleFunc("GET /health", analyticsHandler.Health)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
