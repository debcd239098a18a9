package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/audience-feasibility/internal/api"
	"github.com/ignite/audience-feasibility/internal/catalog"
	"github.com/ignite/audience-feasibility/internal/config"
	"github.com/ignite/audience-feasibility/internal/elastic"
	"github.com/ignite/audience-feasibility/internal/feasibility"
	"github.com/ignite/audience-feasibility/internal/pkg/logger"
	"github.com/ignite/audience-feasibility/internal/pkg/ratelimit"
	"github.com/ignite/audience-feasibility/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %w", addr, err)
	}
	return ln.Close()
}

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		if _, err := os.Stat("config/config.yaml"); err == nil {
			configPath = "config/config.yaml"
		}
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(level)
	logger.SetRedactIDs(cfg.Logging.ShouldRedact())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	es, err := elastic.NewClient(cfg.Elasticsearch)
	if err != nil {
		log.Fatalf("Failed to create search client: %v", err)
	}
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := es.Ping(pingCtx); err != nil {
		// Readiness reports the cluster until it comes back.
		logger.Warn("search cluster not reachable at startup", "addresses", cfg.Elasticsearch.Addresses, "error", err.Error())
	}
	pingCancel()

	service, err := feasibility.NewServiceFromConfig(es, cfg.Feasibility)
	if err != nil {
		log.Fatalf("Failed to create feasibility service: %v", err)
	}

	deps := api.Dependencies{
		Feasibility: service,
		Catalog: catalog.New(es, catalog.Options{
			KeywordIndex: cfg.Catalog.KeywordIndex,
			AssetIndex:   cfg.Catalog.AssetIndex,
			PageSize:     cfg.Catalog.PageSize,
		}),
		Cluster: es,
		Version: version,
	}

	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.NewLimiterFromURL(ctx, cfg.RateLimit.RedisURL, cfg.RateLimit.RequestsPerMinute)
		if err != nil {
			log.Fatalf("Failed to connect rate limiter: %v", err)
		}
		defer limiter.Close()
		deps.Limiter = limiter
	}

	if err := checkPortAvailable(cfg.Server.Addr()); err != nil {
		log.Fatalf("Cannot start server: %v", err)
	}

	server := api.NewServer(cfg, deps)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr(), "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err.Error())
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown failed", "error", err.Error())
	}

	logger.Info("server stopped")
}
