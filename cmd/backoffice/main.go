// Command backoffice runs the entitlement HTTP API: permission catalog,
// grant management, effective-permission resolution, module provisioning
// and the audit trail, all behind one server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/backoffice/pkg/api"
	"github.com/platinummonkey/backoffice/pkg/audit"
	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/companies"
	"github.com/platinummonkey/backoffice/pkg/config"
	"github.com/platinummonkey/backoffice/pkg/entitlement"
	"github.com/platinummonkey/backoffice/pkg/grants"
	"github.com/platinummonkey/backoffice/pkg/middleware"
	"github.com/platinummonkey/backoffice/pkg/observability"
	"github.com/platinummonkey/backoffice/pkg/provisioning"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to postgres")

	// Migrations run in dependency order: grants references the catalog
	// tables, audit stands alone.
	for _, step := range []struct {
		name string
		run  func(context.Context, *sql.DB) error
	}{
		{"catalog", catalog.RunMigrations},
		{"grants", grants.RunMigrations},
		{"audit", audit.RunMigrations},
	} {
		if err := step.run(ctx, db); err != nil {
			log.Fatalf("Failed to run %s migrations: %v", step.name, err)
		}
	}

	// Seed the permission catalog. The seeder logs through logrus
	// directly; its output is operator-facing startup noise.
	seedLog := logrus.New()
	seeder := catalog.NewSeeder(db, seedLog)
	if err := seeder.Apply(ctx, cfg.Catalog.SeedPath); err != nil {
		log.Fatalf("Failed to apply catalog seed: %v", err)
	}
	if cfg.Catalog.WatchSeed {
		watcher := catalog.NewWatcher(seeder, cfg.Catalog.SeedPath, seedLog)
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Catalog seed watcher stopped")
			}
		}()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	go pollDBStats(ctx, metrics, db)

	// Stores and services
	catalogStore := catalog.NewStore(db)
	grantStore := grants.NewStore(db)
	auditStore := audit.NewStore(db)
	companyStore := companies.NewStore(db)

	resolver := entitlement.NewResolver(catalogStore, grantStore, companyStore)
	entitlements := entitlement.NewService(catalogStore, grantStore, companyStore, auditStore, metrics)
	provisioner := provisioning.NewService(catalogStore, grantStore, auditStore, metrics)

	server := api.NewServer(api.Deps{
		Catalog:      catalogStore,
		Grants:       grantStore,
		Resolver:     resolver,
		Entitlements: entitlements,
		Provisioner:  provisioner,
		Audit:        auditStore,
		Logger:       logger,
		Metrics:      metrics,
	})

	// Rate limiting is redis-backed when configured so limits hold
	// across replicas; otherwise buckets live in process memory.
	var redisClient *redis.Client
	var limiter func(http.Handler) http.Handler
	if cfg.Redis.URL != "" {
		redisClient, err = newRedisClient(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to configure redis: %v", err)
		}
		defer redisClient.Close()
		limiter = middleware.NewDistributedRateLimitMiddleware(redisClient).Handler
		logger.Info("Using redis-backed rate limiting")
	} else {
		inProcess := middleware.NewRateLimitMiddleware()
		inProcess.StartCleanup(ctx)
		limiter = inProcess.Handler
	}

	// Middleware chain, outermost first: request logging, identity,
	// rate limiting, metrics.
	var handler http.Handler = server
	handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	handler = limiter(handler)
	handler = middleware.Identity(handler)
	handler = middleware.NewRequestLogger(logger).Handler(handler)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate listener so probes bypass
	// identity and rate limiting.
	health := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		return nil
	})

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("Starting API server")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Starting health server")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	if err := g.Wait(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
	logger.Info("Shutdown complete")
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if strings.Contains(cfg.URL, "://") {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), nil
}

// pollDBStats refreshes connection pool gauges until ctx is cancelled
func pollDBStats(ctx context.Context, metrics *observability.Metrics, db *sql.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.CollectDBStats(db)
		}
	}
}
