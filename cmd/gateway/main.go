// Command gateway starts the API gateway service.
//
// The gateway is the single entry point for external clients. It
// authenticates requests via API keys (SHA-256 validated against
// PostgreSQL), applies per-key rate limiting, and proxies requests to the
// ingestion, scanner, and analytics services. It also exposes admin
// endpoints for API key management and direct text-metadata retrieval
// backed by PostgreSQL behind a circuit breaker.
//
// Usage:
//
//	go run ./cmd/gateway [-config configs/development.yaml]
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

	"github.com/permscan/permscan/internal/auth/apikey"
	"github.com/permscan/permscan/internal/auth/ratelimit"
	gwhandler "github.com/permscan/permscan/internal/gateway/handler"
	"github.com/permscan/permscan/internal/gateway/router"
	"github.com/permscan/permscan/pkg/config"
	"github.com/permscan/permscan/pkg/logger"
	"github.com/permscan/permscan/pkg/metrics"
	"github.com/permscan/permscan/pkg/postgres"
	"github.com/permscan/permscan/pkg/resilience"
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
	slog.Info("starting gateway service",
		"port", cfg.Gateway.Port,
		"ingestion_url", cfg.Gateway.IngestionURL,
		"scanner_url", cfg.Gateway.ScannerURL,
		"analytics_url", cfg.Gateway.AnalyticsURL,
	)

	m := metrics.New()

	// PostgreSQL is shared by API key validation and text metadata reads.
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	validator := apikey.NewValidator(db)
	limiter := ratelimit.New(time.Minute)

	dbBreaker := resilience.NewCircuitBreaker("gateway-db", resilience.CircuitBreakerConfig{
		OnStateChange: func(name string, state resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
		},
	})

	h := gwhandler.New(gwhandler.Config{
		IngestionURL: cfg.Gateway.IngestionURL,
		ScannerURL:   cfg.Gateway.ScannerURL,
		AnalyticsURL: cfg.Gateway.AnalyticsURL,
	}, db, validator, dbBreaker)

	chain := router.New(h, validator, limiter)

	if cfg.Metrics.Enabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			slog.Info("metrics server listening", "addr", addr)
			if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("gateway service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway service stopped")
}
