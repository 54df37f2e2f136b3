package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/catalog-s3/internal/api"
	"github.com/andresuchdata/catalog-s3/internal/cache"
	"github.com/andresuchdata/catalog-s3/internal/config"
	"github.com/andresuchdata/catalog-s3/internal/metrics"
	"github.com/andresuchdata/catalog-s3/internal/replication"
	"github.com/andresuchdata/catalog-s3/internal/repository/postgres"
	"github.com/andresuchdata/catalog-s3/internal/service"
	"github.com/andresuchdata/catalog-s3/internal/storage"
	"github.com/andresuchdata/catalog-s3/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	m := metrics.New()

	// Initialize storage
	store, err := storage.New(ctx, cfg.Storage,
		storage.WithLogger(logger.Component("storage")),
		storage.WithMetrics(m),
		storage.WithPageSize(cfg.Backup.PageSize),
	)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
	}
	if mem, ok := store.(*storage.MemoryStore); ok && cfg.Storage.BackupBucket != "" {
		mem.CreateBucket(cfg.Storage.BackupBucket)
	}

	// Initialize cache
	productCache, err := cache.NewProductCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Product cache unavailable, continuing without it")
		productCache = cache.NewNoopProductCache()
	}

	backupLock := cache.NewLocalBackupLock()
	if cfg.Cache.Enabled {
		if backupLock, err = cache.NewBackupLock(cfg.Cache, cfg.Backup.LockTTL); err != nil {
			logger.Log.Warn().Err(err).Msg("Shared backup lock unavailable, using process-local lock")
			backupLock = cache.NewLocalBackupLock()
		}
	}

	// Initialize services
	settingsService := service.NewSettingsService(postgres.NewSettingsRepository(db), cfg.Storage)
	replicator := replication.New(store,
		replication.WithWorkers(cfg.Backup.Workers),
		replication.WithLogger(logger.Component("replication")),
		replication.WithMetrics(m),
	)

	services := &api.Services{
		CatalogService:  service.NewCatalogService(postgres.NewProductRepository(db), store, productCache),
		SettingsService: settingsService,
		BackupService:   service.NewBackupService(settingsService, replicator, store, backupLock),
	}

	// Initialize HTTP server
	router := api.NewRouter(services, cfg.Server.AllowedOrigins, m)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("storage_driver", cfg.Storage.Driver).
			Str("bucket", store.Bucket()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Log.Info().Msg("Server exiting")
}
