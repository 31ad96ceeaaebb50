// @title           ModVault API
// @version         0.1.0
// @description     Mod hosting registry: content-addressed artifact storage, project metadata, and full-text search.
// @basePath        /
// @schemes         http https
// @securityDefinitions.apiKey  Bearer
// @in                          header
// @name                        Authorization
// @description                 "Bearer {api token or session token}"

// Package main is the entry point for the modvault server binary. It
// dispatches three subcommands — serve, migrate, and version — via a simple
// switch on os.Args so the binary's full CLI surface is readable in one place
// without requiring a cobra dependency. The serve command runs auto-migration
// on startup so freshly deployed containers never need a separate migration
// step.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/modvault/modvault/internal/api"
	"github.com/modvault/modvault/internal/auth"
	"github.com/modvault/modvault/internal/cache"
	"github.com/modvault/modvault/internal/config"
	"github.com/modvault/modvault/internal/db"
	"github.com/modvault/modvault/internal/db/repositories"
	"github.com/modvault/modvault/internal/events"
	"github.com/modvault/modvault/internal/jobs"
	"github.com/modvault/modvault/internal/registry"
	"github.com/modvault/modvault/internal/safego"
	"github.com/modvault/modvault/internal/search"
	"github.com/modvault/modvault/internal/storage"
	"github.com/modvault/modvault/internal/telemetry"

	// Import storage backends to register them
	_ "github.com/modvault/modvault/internal/storage/local"
	_ "github.com/modvault/modvault/internal/storage/s3"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	case "version":
		fmt.Printf("modvault v%s\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, version", command)
	}
}

func serve(cfg *config.Config) error {
	// Structured logger first so everything below logs in the configured
	// format and level.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	slog.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)

	if err := db.RunMigrations(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	safego.Go(func() { telemetry.PollDBStats(database) })

	store, err := storage.NewStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	slog.Info("initialized storage backend", "backend", cfg.Storage.Backend)

	// Repositories
	userRepo := repositories.NewUserRepository(database)
	projectRepo := repositories.NewProjectRepository(database)
	versionRepo := repositories.NewVersionRepository(database)
	galleryRepo := repositories.NewGalleryRepository(database)
	moderationRepo := repositories.NewModerationRepository(database)

	// Search: ensure the collection exists, then hang the write-side
	// synchronizer off the project projections.
	searchClient := search.NewClient(&cfg.Search)
	ensureCtx, cancelEnsure := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelEnsure()
	if err := searchClient.EnsureCollection(ensureCtx); err != nil {
		return fmt.Errorf("failed to ensure search collection: %w", err)
	}
	synchronizer := search.NewSynchronizer(searchClient, projectRepo)

	// Redis is optional: without it rate limiting turns off and the cache
	// always misses.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	bus := events.NewBus()
	reg := registry.New(
		projectRepo, versionRepo, galleryRepo, moderationRepo,
		store, synchronizer, registry.ZipVerifier{}, bus, slog.Default(),
	)

	sessions := auth.NewSessionIssuer(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	resolver := auth.NewResolver(userRepo, cfg.Auth.TokenTTL, sessions)
	if sessions == nil {
		slog.Info("session tokens disabled (no auth.session_secret configured)")
	}

	projectCache := cache.New(rdb, slog.Default())
	handlers := api.NewHandlers(reg, userRepo, resolver, searchClient, projectCache, cfg, slog.Default())

	// Background token-expiry sweep
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	sweeper := jobs.NewTokenSweeper(userRepo, time.Hour, slog.Default())
	safego.Go(func() { sweeper.Start(jobCtx) })

	// Prometheus metrics on a dedicated port, off the public ingress path.
	if cfg.Telemetry.MetricsEnabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.PrometheusPort)
		safego.Go(func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		})
	}

	router := api.NewRouter(cfg, handlers, resolver, rdb, database)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr, "base_url", cfg.Server.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// In-flight requests are drained; stop the background loops.
	sweeper.Stop()
	cancelJobs()

	slog.Info("server stopped gracefully")
	return nil
}

func runMigrations(cfg *config.Config, direction string) error {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	slog.Info("running migrations", "direction", direction)
	if err := db.RunMigrations(database, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("migration completed")
	return nil
}
