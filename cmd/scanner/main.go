// Command scanner starts the permutation-scan service.
//
// The service holds the partitioned text corpus in memory, restores it from
// the latest on-disk snapshots at boot, and keeps it current by consuming
// text events from Kafka. Scan queries arrive via GET /api/v1/scan (with
// Redis-backed result caching) or via the JSON-over-TCP RPC endpoint.
// Prometheus metrics are served on a separate port.
//
// Usage:
//
//	go run ./cmd/scanner [-config configs/development.yaml]
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/permscan/permscan/internal/analytics"
	"github.com/permscan/permscan/internal/corpus"
	"github.com/permscan/permscan/internal/corpus/snapshot"
	"github.com/permscan/permscan/internal/match"
	"github.com/permscan/permscan/internal/scanner/cache"
	scanconsumer "github.com/permscan/permscan/internal/scanner/consumer"
	"github.com/permscan/permscan/internal/scanner/executor"
	"github.com/permscan/permscan/internal/scanner/handler"
	"github.com/permscan/permscan/internal/scanner/rpcservice"
	"github.com/permscan/permscan/pkg/config"
	"github.com/permscan/permscan/pkg/health"
	"github.com/permscan/permscan/pkg/kafka"
	"github.com/permscan/permscan/pkg/logger"
	"github.com/permscan/permscan/pkg/metrics"
	"github.com/permscan/permscan/pkg/middleware"
	"github.com/permscan/permscan/pkg/postgres"
	"github.com/permscan/permscan/pkg/redis"
	"github.com/permscan/permscan/pkg/rpc"
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
	slog.Info("starting scanner service",
		"port", cfg.Server.Port,
		"num_partitions", cfg.Corpus.NumPartitions,
		"alphabet", cfg.Scan.Alphabet,
	)

	m := metrics.New()

	alphabet, err := match.NewAlphabet(cfg.Scan.Alphabet)
	if err != nil {
		slog.Error("invalid scan alphabet", "error", err)
		os.Exit(1)
	}
	engine := match.NewEngine(alphabet)

	store, err := corpus.NewStore(cfg.Corpus.NumPartitions)
	if err != nil {
		slog.Error("failed to create corpus store", "error", err)
		os.Exit(1)
	}

	snapshotter := snapshot.NewSnapshotter(store, cfg.Corpus.DataDir, cfg.Corpus.SnapshotInterval, m)
	restored, err := snapshotter.Restore()
	if err != nil {
		slog.Error("snapshot restore failed", "error", err)
		os.Exit(1)
	}
	slog.Info("corpus restored from snapshots", "texts", restored, "data_dir", cfg.Corpus.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go snapshotter.Run(ctx)

	// PostgreSQL is optional here: it only backs text status updates from
	// the corpus consumer. The scanner keeps serving without it.
	var db *postgres.Client
	db, err = postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, text status updates disabled", "error", err)
		db = nil
	} else {
		defer db.Close()
	}

	var statusDB *sql.DB
	if db != nil {
		statusDB = db.DB
	}
	handleMsg := scanconsumer.HandleMessage(store, statusDB, m)
	corpusConsumer := scanconsumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.TextSubmit, handleMsg))
	go func() {
		if err := corpusConsumer.Start(ctx); err != nil {
			slog.Error("corpus consumer error", "error", err)
		}
	}()
	slog.Info("corpus consumer started", "topic", cfg.Kafka.Topics.TextSubmit)

	var queryCache *cache.QueryCache
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, scan caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis, m)
		slog.Info("scan cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	collector := analytics.NewCollector(analyticsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	exec := executor.New(store, engine, cfg.Scan)
	h := handler.New(exec, queryCache, store, collector, m, cfg.Scan.DefaultLimit, cfg.Scan.MaxResults)

	checker := health.NewChecker()
	checker.Register("corpus", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d texts in %d partitions", store.TextCount(), cfg.Corpus.NumPartitions),
		}
	})
	if db != nil {
		checker.RegisterPing("postgres", db.DB.PingContext)
	}
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	// RPC endpoint for service-to-service scans.
	rpcServer := rpc.NewServer()
	rpcservice.New(exec, store, snapshotter).RegisterAll(rpcServer)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.RPCPort)
		slog.Info("rpc server listening", "addr", addr, "methods", rpcServer.MethodCount())
		if err := rpcServer.Serve(addr); err != nil {
			slog.Error("rpc server error", "error", err)
		}
	}()

	if cfg.Metrics.Enabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			slog.Info("metrics server listening", "addr", addr)
			if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/scan", h.Scan)
	mux.HandleFunc("GET /api/v1/corpus/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
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
		rpcServer.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("scanner service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("scanner service stopped")
}
