package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/manuscript-be/internal/api"
	"github.com/isdelr/manuscript-be/internal/auth"
	"github.com/isdelr/manuscript-be/internal/config"
	"github.com/isdelr/manuscript-be/internal/database"
	"github.com/isdelr/manuscript-be/internal/logger"
	"github.com/isdelr/manuscript-be/internal/monitoring"
	"github.com/isdelr/manuscript-be/internal/services"
	"github.com/isdelr/manuscript-be/internal/storage"
	"github.com/isdelr/manuscript-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("database", database.Describe(cfg.DatabaseURL)).Msg("Failed to initialize database")
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	err = database.Migrate(migrateCtx, db)
	cancelMigrate()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}
	log.Info().Str("database", database.Describe(cfg.DatabaseURL)).Str("dialect", string(db.Dialect())).Msg("Database ready")

	// Set up blob storage
	blobs, diskPath, err := newBlobStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.BlobBackend).Msg("Failed to initialize blob storage")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db, hub)
	userService := services.NewUserService(db, eventService)
	manuscriptService := services.NewManuscriptService(db, blobs, eventService, hub)
	contactService := services.NewContactService(db, eventService, hub)

	// Set up and run the orphan blob sweeper
	sweeper, err := monitoring.NewOrphanSweeper(cfg.OrphanSweepSchedule, cfg.OrphanGracePeriod, blobs, manuscriptService, eventService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure orphan sweeper")
	}
	sweeper.Start()

	// Set up and run the disk monitor when files live on local disk
	var diskMonitor *monitoring.DiskMonitor
	if diskPath != "" {
		diskMonitor = monitoring.NewDiskMonitor(diskPath, cfg.DiskAlertPercent, eventService)
		go diskMonitor.Run()
	}

	// Set up router
	router := api.NewRouter(cfg, api.Deps{
		Tokens:      auth.NewTokenManager(cfg.JWTSecret),
		Hub:         hub,
		DB:          db,
		Blobs:       blobs,
		DiskPath:    diskPath,
		Users:       userService,
		Manuscripts: manuscriptService,
		Contacts:    contactService,
		Events:      eventService,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	sweeper.Stop() // Stop the reconciliation sweeps
	if diskMonitor != nil {
		diskMonitor.Stop()
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}

// newBlobStore builds the configured blob backend. The returned path is the
// local content directory, or empty for remote backends.
func newBlobStore(cfg *config.Config) (storage.Store, string, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("bucket", cfg.S3.Bucket).Str("endpoint", cfg.S3.Endpoint).Msg("Using S3 blob storage")
		return s, "", nil
	default:
		// Ensure the content directory exists
		s, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("dir", s.Dir()).Msg("Using local blob storage")
		return s, s.Dir(), nil
	}
}
