package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/doshiMiraj/MGNREGA-Dashboard/config"
	"github.com/doshiMiraj/MGNREGA-Dashboard/dashboard"
	"github.com/doshiMiraj/MGNREGA-Dashboard/datagov"
	"github.com/doshiMiraj/MGNREGA-Dashboard/handlers"
	"github.com/doshiMiraj/MGNREGA-Dashboard/middleware"
	"github.com/doshiMiraj/MGNREGA-Dashboard/store"
	"github.com/doshiMiraj/MGNREGA-Dashboard/syncer"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

const (
	dbRetries       = 5
	shutdownTimeout = 30 * time.Second
	cleanupInterval = time.Minute
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	startTime := time.Now()
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Load environment variables first
	envFile, err := config.LoadEnv(bootLogger)
	if err != nil {
		bootLogger.Warn("error loading .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("starting server initialization",
		"environment", cfg.Env, "env_file", envFile, "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDBWithRetry(ctx, cfg.DB, dbRetries, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	repo := store.New(db, logger)
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	var mongoClient *mongo.Client
	var recorder syncer.RunRecorder = syncer.NewMemoryRecorder(0)
	if cfg.Mongo.URI != "" {
		mongoClient, err = config.ConnectMongoWithRetry(ctx, cfg.Mongo, dbRetries, logger)
		if err != nil {
			return fmt.Errorf("connect mongodb: %w", err)
		}
		rec, err := syncer.NewMongoRecorder(ctx, mongoClient.Database(cfg.Mongo.DBName))
		if err != nil {
			return fmt.Errorf("prepare sync history: %w", err)
		}
		recorder = rec
	}
	defer config.CloseDB(db, mongoClient, logger)

	responseCache, closeCache := config.InitCache(ctx, cfg.Redis, logger)
	defer func() {
		if err := closeCache(); err != nil {
			logger.Warn("error closing cache", "error", err)
		}
	}()

	client := datagov.New(datagov.Options{
		BaseURL:           cfg.DataGov.BaseURL,
		ResourceID:        cfg.DataGov.ResourceID,
		APIKey:            cfg.DataGov.APIKey,
		TargetState:       cfg.DataGov.TargetState,
		Timeout:           cfg.DataGov.Timeout,
		RequestsPerSecond: cfg.DataGov.RequestsPerSecond,
		Logger:            logger,
	})
	syncService := syncer.NewService(client, repo, responseCache, logger, syncer.WithRecorder(recorder))

	job, err := syncer.NewJob(syncService, cfg.Sync.JobCron, cfg.Sync.JobEnabled, logger)
	if err != nil {
		return err
	}
	job.Start()
	defer job.Stop()

	svc := dashboard.New(repo, cfg.Scoring, cfg.DataGov.TargetState, logger)

	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error { return config.CheckDBHealth(ctx, db) },
		"cache":    responseCache.Ping,
	}
	if mongoClient != nil {
		checks["mongodb"] = func(ctx context.Context) error { return config.CheckMongoHealth(ctx, mongoClient) }
	}
	h := handlers.New(svc, responseCache, syncService, job, handlers.Options{
		AdminToken:  cfg.HTTP.AdminToken,
		SiteURL:     cfg.HTTP.SiteURL,
		Environment: cfg.Env,
		Version:     version,
		Checks:      checks,
	}, logger)

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitMax, logger)
	go sweepLimiter(ctx, limiter, logger)

	r := mux.NewRouter()

	// Apply middlewares in order
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.HTTP.CORSOrigins, cfg.Development(), logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Compress)

	// API routes under /api/v1 and /api
	h.Mount(r, limiter.Handler)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: r,
		// Empty-database requests sync a whole year from the API inline.
		WriteTimeout:      2 * time.Minute,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", srv.Addr, "startup", time.Since(startTime).String(), "cache", responseCache.Backend())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return srv.Close()
	}
	logger.Info("server stopped gracefully")
	return nil
}

// sweepLimiter forgets clients whose rate limit window has passed.
func sweepLimiter(ctx context.Context, limiter *middleware.RateLimiter, logger *slog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := limiter.CleanupStale(now); n > 0 {
				logger.Debug("rate limiter clients removed", "count", n, "remaining", limiter.Clients())
			}
		}
	}
}
